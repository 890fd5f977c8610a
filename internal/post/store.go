package post

import (
	"slices"
	"sync"
)

// Store is the ordered, in-memory post collection.
//
// Insertion order is fetch order followed by creation order. Ids are unique
// within the collection as long as callers only add posts the remote
// confirmed.
//
// Thread-safety: all methods are safe for concurrent use. Each mutation is
// applied atomically.
type Store struct {
	mu    sync.RWMutex
	posts []Post
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{posts: []Post{}}
}

// SetPosts replaces the whole collection. The slice is copied.
func (s *Store) SetPosts(posts []Post) {
	cp := make([]Post, len(posts))
	copy(cp, posts)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = cp
}

// AddPost appends p. The caller guarantees p.ID is set.
func (s *Store) AddPost(p Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append(s.posts, p)
}

// EditPost replaces the post with the same id, keeping its position.
// Returns *InconsistentStateError and leaves the collection untouched when
// no post matches.
func (s *Store) EditPost(p Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.posts, func(existing Post) bool {
		return existing.ID == p.ID
	})
	if i < 0 {
		return NewInconsistentStateError(p.ID)
	}
	s.posts[i] = p
	return nil
}

// Posts returns a copy of the collection in order.
func (s *Store) Posts() []Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.posts)
}

// Post returns the post with the given id.
func (s *Store) Post(id string) (Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.posts {
		if p.ID == id {
			return p, true
		}
	}
	return Post{}, false
}

// Len returns the number of loaded posts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posts)
}
