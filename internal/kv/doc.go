// Package kv provides SQLite-backed durable key-value storage for client
// state that must survive restarts, such as the session token and its expiry.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Multi-key writes (SetAll, Delete) run in a single transaction so readers
// never observe half of a token/expiry pair.
package kv
