// Package post holds the blog post model and the in-memory post store.
//
// The Store is the single owner of the loaded post collection. It only
// changes through its mutation methods (SetPosts, AddPost, EditPost), which
// callers apply after a remote write has been confirmed. Reads go through
// Posts and Post, which return copies.
//
// Remote documents use a map-of-records shape keyed by server-generated ids:
//
//	{"-Nab1": {"title": "T", "body": "B", "updatedDate": "2024-01-02T03:04:05.000Z"}}
//
// DecodeCollection turns that shape into an ordered slice, preserving the key
// order of the document.
package post
