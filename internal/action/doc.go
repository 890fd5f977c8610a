// Package action implements the operations that talk to the backend and
// then commit their results to the client stores.
//
// Every action follows the same order: call the remote, wait for it to
// succeed, then apply exactly one mutation. Nothing is committed before the
// remote confirms, so a failed call leaves the stores as they were and there
// is never anything to roll back. Failures are returned to the caller as
// wrapped, typed errors; actions do not retry.
//
// Concurrent actions are independent. Two Create calls may commit in either
// order. Two Update calls for the same post race, and the last commit wins.
//
// The only deferred work is the logout timer owned by AuthActions. Arming a
// new timer always invalidates the previous one, so at most one automatic
// logout can fire per session.
package action
