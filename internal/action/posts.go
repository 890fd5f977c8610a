package action

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/roach88/postsync/internal/post"
	"github.com/roach88/postsync/internal/remote"
)

// PostsPath is the remote posts collection.
const PostsPath = "/posts.json"

// PostPath is the remote document of a single post.
func PostPath(id string) string {
	return "/posts/" + url.PathEscape(id) + ".json"
}

// PostCommitter is the mutation capability PostActions needs.
// post.Store implements it.
type PostCommitter interface {
	SetPosts(posts []post.Post)
	AddPost(p post.Post)
	EditPost(p post.Post) error
}

// PostActions loads, creates and updates posts on the backend and commits
// the confirmed results.
type PostActions struct {
	client remote.Client
	posts  PostCommitter
	opts   options
}

// NewPostActions creates post actions over client and posts.
func NewPostActions(client remote.Client, posts PostCommitter, opts ...Option) *PostActions {
	return &PostActions{
		client: client,
		posts:  posts,
		opts:   buildOptions(opts),
	}
}

// LoadAll replaces the local collection with the remote one.
// On any failure the local collection is untouched.
func (a *PostActions) LoadAll(ctx context.Context) (err error) {
	r := a.opts.begin("posts.load")
	defer func() { r.finish(err) }()

	data, err := a.client.Get(ctx, PostsPath)
	if err != nil {
		return fmt.Errorf("load posts: %w", err)
	}

	posts, err := post.DecodeCollection(data)
	if err != nil {
		return fmt.Errorf("load posts: %w: %w", ErrMalformedResponse, err)
	}

	a.posts.SetPosts(posts)
	r.log.Debug("posts loaded", "count", len(posts))
	return nil
}

// createResponse is the backend's reply to a collection POST.
type createResponse struct {
	Name string `json:"name"`
}

// Create stamps the draft, stores it remotely and appends it locally under
// the server-generated id. Returns the committed post.
func (a *PostActions) Create(ctx context.Context, draft post.Draft) (p post.Post, err error) {
	r := a.opts.begin("posts.create")
	defer func() { r.finish(err) }()

	d := draft.Normalized()
	rec := post.Record{
		Title:       d.Title,
		Body:        d.Body,
		UpdatedDate: post.Stamp(a.opts.clock.Now()),
	}

	data, err := a.client.Post(ctx, PostsPath, rec)
	if err != nil {
		return post.Post{}, fmt.Errorf("create post: %w", err)
	}

	var resp createResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return post.Post{}, fmt.Errorf("create post: %w: %w", ErrMalformedResponse, err)
	}
	if resp.Name == "" {
		return post.Post{}, fmt.Errorf("create post: %w: missing name", ErrMalformedResponse)
	}

	p = rec.WithID(resp.Name)
	a.posts.AddPost(p)
	r.log.Debug("post created", "post_id", p.ID)
	return p, nil
}

// Update stamps a fresh updatedDate, replaces the remote document and then
// commits exactly the values that were sent. Returns the committed post.
//
// If the remote write succeeds but the post is not loaded locally, the
// returned error satisfies post.IsInconsistentState and the store is
// unchanged.
func (a *PostActions) Update(ctx context.Context, p post.Post) (edited post.Post, err error) {
	r := a.opts.begin("posts.update")
	defer func() { r.finish(err) }()

	if p.ID == "" {
		return post.Post{}, fmt.Errorf("update post: %w", ErrMissingID)
	}

	edited = p.Normalized()
	edited.UpdatedDate = post.Stamp(a.opts.clock.Now())

	if _, err := a.client.Put(ctx, PostPath(edited.ID), edited.Record()); err != nil {
		return post.Post{}, fmt.Errorf("update post %s: %w", edited.ID, err)
	}

	if err := a.posts.EditPost(edited); err != nil {
		return post.Post{}, fmt.Errorf("update post %s: %w", edited.ID, err)
	}
	r.log.Debug("post updated", "post_id", edited.ID)
	return edited, nil
}
