// Package session holds the client's authentication token and its absolute
// expiry.
//
// The token and expiry are mirrored to durable Storage under the keys
// "token" and "tokenExpiration" (epoch milliseconds as a decimal string) so
// a restarted client can Restore the session. Restore discards anything that
// is missing, malformed or already expired.
//
// Claims read from the token are for display only. The client never verifies
// token signatures; the backend does.
package session
