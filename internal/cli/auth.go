package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/postsync/internal/action"
	"github.com/roach88/postsync/internal/app"
	"github.com/roach88/postsync/internal/session"
)

// AuthOptions holds flags for the login and signup commands.
type AuthOptions struct {
	*RootOptions
	Email    string
	Password string
}

// SessionResult describes the current session.
type SessionResult struct {
	Active    bool       `json:"active"`
	Email     string     `json:"email,omitempty"`
	UserID    string     `json:"user_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Remaining string     `json:"remaining,omitempty"`
}

// RenderText implements TextRenderer.
func (r SessionResult) RenderText(w io.Writer) {
	if !r.Active {
		fmt.Fprintln(w, "No active session")
		return
	}
	if r.Email != "" {
		fmt.Fprintf(w, "Signed in as %s\n", r.Email)
	} else {
		fmt.Fprintln(w, "Signed in")
	}
	fmt.Fprintf(w, "Session expires at %s (in %s)\n", r.ExpiresAt.Format(time.RFC3339), r.Remaining)
}

// LogoutResult is the logout command's output.
type LogoutResult struct {
	LoggedOut bool `json:"logged_out"`
}

// RenderText implements TextRenderer.
func (LogoutResult) RenderText(w io.Writer) {
	fmt.Fprintln(w, "Logged out")
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	return newAuthCommand(rootOpts, true)
}

// NewSignupCommand creates the signup command.
func NewSignupCommand(rootOpts *RootOptions) *cobra.Command {
	return newAuthCommand(rootOpts, false)
}

func newAuthCommand(rootOpts *RootOptions, isLogin bool) *cobra.Command {
	opts := &AuthOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and start a session",
		Long: `Create an account with the identity service and start a session.

The token is stored on disk and removed automatically once it expires.

Example:
  postsync signup --email me@example.com --password s3cret!`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(opts, isLogin, cmd)
		},
	}
	if isLogin {
		cmd.Use = "login"
		cmd.Short = "Sign in and start a session"
		cmd.Long = `Sign in with the identity service and start a session.

The token is stored on disk and removed automatically once it expires.

Example:
  postsync login --email me@example.com --password s3cret!`
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "account password (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func runAuth(opts *AuthOptions, isLogin bool, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := newFormatter(opts.RootOptions, cmd)

	a, err := openApp(ctx, opts.RootOptions, f)
	if err != nil {
		return err
	}
	defer a.Close()

	err = a.Auth.Authenticate(ctx, action.Credentials{
		Email:    opts.Email,
		Password: opts.Password,
		IsLogin:  isLogin,
	})
	if err != nil {
		return reportActionError(f, err)
	}

	return f.Success(sessionResult(a))
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "logout",
		Short:         "End the current session",
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

			if err := a.Auth.Logout(ctx); err != nil {
				return f.fail(ExitCommandError, ErrCodeStorage, err.Error(), nil)
			}
			return f.Success(LogoutResult{LoggedOut: true})
		},
	}
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Long: `Show whether a session is active, who it belongs to and when it expires.

The account details are read from the token without verifying it.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)

			a, err := openApp(cmd.Context(), rootOpts, f)
			if err != nil {
				return err
			}
			defer a.Close()

			return f.Success(sessionResult(a))
		},
	}
}

func sessionResult(a *app.App) SessionResult {
	now := a.Now()
	if a.Session.IsExpired(now) {
		return SessionResult{}
	}

	snap := a.Session.Snapshot()
	expires := snap.ExpiresAt.UTC()
	res := SessionResult{
		Active:    true,
		ExpiresAt: &expires,
		Remaining: snap.ExpiresAt.Sub(now).Round(time.Second).String(),
	}
	if claims, err := session.ParseClaims(snap.Token); err == nil {
		res.Email = claims.Email
		res.UserID = claims.UserID
	} else {
		a.Log.Debug("token claims unreadable", "error", err)
	}
	return res
}
