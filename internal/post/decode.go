package post

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeCollection converts a remote map-of-records document into posts,
// injecting each key as the post id.
//
// Posts are returned in the key order of the document. A JSON null (an empty
// remote collection) yields an empty, non-nil slice.
func DecodeCollection(data []byte) ([]Post, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	if tok == nil {
		return []Post{}, nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("decode posts: expected object, got %v", tok)
	}

	posts := []Post{}
	seen := make(map[string]bool)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode posts: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("decode posts: unexpected key %v", keyTok)
		}

		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode post %q: %w", key, err)
		}
		if seen[key] {
			return nil, fmt.Errorf("decode posts: duplicate id %q", key)
		}
		seen[key] = true
		posts = append(posts, rec.WithID(key))
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	return posts, nil
}
