package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/postsync/internal/post"
)

// PostList is the posts list command's output.
type PostList struct {
	Posts []post.Post `json:"posts"`
}

// RenderText implements TextRenderer.
func (l PostList) RenderText(w io.Writer) {
	if len(l.Posts) == 0 {
		fmt.Fprintln(w, "No posts")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUPDATED\tTITLE")
	for _, p := range l.Posts {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, formatStamp(p.UpdatedDate), p.Title)
	}
	tw.Flush()
}

// PostView is the output of commands that show a single post.
type PostView struct {
	Post post.Post `json:"post"`
}

// RenderText implements TextRenderer.
func (v PostView) RenderText(w io.Writer) {
	fmt.Fprintln(w, v.Post.Title)
	fmt.Fprintln(w)
	if v.Post.Body != "" {
		fmt.Fprintln(w, v.Post.Body)
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "id: %s\n", v.Post.ID)
	fmt.Fprintf(w, "updated: %s\n", formatStamp(v.Post.UpdatedDate))
}

func formatStamp(ts post.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.UTC().Format("2006-01-02 15:04:05")
}

// NewPostsCommand creates the posts command group.
func NewPostsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List, show, create and edit posts",
	}

	cmd.AddCommand(newPostsListCommand(rootOpts))
	cmd.AddCommand(newPostsShowCommand(rootOpts))
	cmd.AddCommand(newPostsCreateCommand(rootOpts))
	cmd.AddCommand(newPostsEditCommand(rootOpts))

	return cmd
}

func newPostsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List all posts in remote order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f := newFormatter(rootOpts, cmd)

			a, err := openApp(ctx, rootOpts, f)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.PostActions.LoadAll(ctx); err != nil {
				return reportActionError(f, err)
			}
			return f.Success(PostList{Posts: a.Posts.Posts()})
		},
	}
}

func newPostsShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <id>",
		Short:         "Show a single post",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f := newFormatter(rootOpts, cmd)

			a, err := openApp(ctx, rootOpts, f)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.PostActions.LoadAll(ctx); err != nil {
				return reportActionError(f, err)
			}
			p, ok := a.Posts.Post(args[0])
			if !ok {
				return f.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("post %q not found", args[0]), nil)
			}
			return f.Success(PostView{Post: p})
		},
	}
}

// CreateOptions holds flags for the posts create command.
type CreateOptions struct {
	*RootOptions
	Title string
	Body  string
}

func newPostsCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a post",
		Long: `Create a post in the remote store.

The post is added locally only after the store accepts it and assigns an id.

Example:
  postsync posts create --title "Hello" --body "First post"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f := newFormatter(opts.RootOptions, cmd)

			a, err := openApp(ctx, opts.RootOptions, f)
			if err != nil {
				return err
			}
			defer a.Close()

			created, err := a.PostActions.Create(ctx, post.Draft{Title: opts.Title, Body: opts.Body})
			if err != nil {
				return reportActionError(f, err)
			}
			return f.Success(PostView{Post: created})
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "post title (required)")
	cmd.Flags().StringVar(&opts.Body, "body", "", "post body")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

// EditOptions holds flags for the posts edit command.
type EditOptions struct {
	*RootOptions
	Title string
	Body  string
}

func newPostsEditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a post",
		Long: `Replace the title and/or body of an existing post.

Fields that are not given keep their current value. The edit is applied
locally only after the remote store accepts it.

Example:
  postsync posts edit -- -Nx3abc --body "Updated text"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "new title")
	cmd.Flags().StringVar(&opts.Body, "body", "", "new body")

	return cmd
}

func runEdit(opts *EditOptions, id string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := newFormatter(opts.RootOptions, cmd)

	titleSet := cmd.Flags().Changed("title")
	bodySet := cmd.Flags().Changed("body")
	if !titleSet && !bodySet {
		return f.fail(ExitCommandError, ErrCodeUsage, "nothing to change: pass --title and/or --body", nil)
	}

	a, err := openApp(ctx, opts.RootOptions, f)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.PostActions.LoadAll(ctx); err != nil {
		return reportActionError(f, err)
	}
	p, ok := a.Posts.Post(id)
	if !ok {
		return f.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("post %q not found", id), nil)
	}

	if titleSet {
		p.Title = opts.Title
	}
	if bodySet {
		p.Body = opts.Body
	}

	edited, err := a.PostActions.Update(ctx, p)
	if err != nil {
		return reportActionError(f, err)
	}
	return f.Success(PostView{Post: edited})
}
