// Package remote is the transport between the client stores and a
// Firebase-style backend.
//
// Client is the capability the actions depend on: JSON get/post/put against
// resource-relative paths ("/posts.json", "/posts/{id}.json") on a configured
// origin, or against absolute URLs for the identity service. HTTPClient is the
// net/http implementation.
//
// There is no client-side timeout and no retry. Callers bound requests with
// their context.
package remote
