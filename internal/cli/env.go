package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/postsync/internal/action"
	"github.com/roach88/postsync/internal/app"
	"github.com/roach88/postsync/internal/config"
	"github.com/roach88/postsync/internal/post"
	"github.com/roach88/postsync/internal/remote"
)

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// openApp loads configuration, builds the App and restores any persisted
// session. Failures are reported through f.
func openApp(ctx context.Context, opts *RootOptions, f *OutputFormatter) (*app.App, error) {
	cfg, err := config.Load(opts.Config, opts.configOpts...)
	if err != nil {
		var details any
		var ce *config.ConfigError
		if errors.As(err, &ce) && len(ce.Details) > 0 {
			details = ce.Details
		}
		return nil, f.fail(ExitCommandError, ErrCodeConfig, err.Error(), details)
	}

	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	log := app.NewLogger(f.GetErrWriter(), level, cfg.Log.Format)

	appOpts := opts.appOpts
	if opts.MetricsFile != "" {
		appOpts = append(slices.Clip(appOpts), app.WithMetricsFile(opts.MetricsFile))
	}
	a, err := app.New(cfg, log, appOpts...)
	if err != nil {
		return nil, f.fail(ExitCommandError, ErrCodeStorage, err.Error(), nil)
	}

	restored, err := a.Restore(ctx)
	if err != nil {
		a.Close()
		return nil, f.fail(ExitCommandError, ErrCodeStorage, err.Error(), nil)
	}
	f.VerboseLog("Session restored: %v", restored)
	return a, nil
}

// reportActionError maps an action failure onto an error code and exit code.
func reportActionError(f *OutputFormatter, err error) error {
	var authErr *action.AuthError
	switch {
	case errors.As(err, &authErr):
		verb := "signup"
		if authErr.IsLogin {
			verb = "login"
		}
		reason := authErr.Reason
		if reason == "" {
			reason = authErr.Err.Error()
		}
		return f.fail(ExitFailure, ErrCodeAuth, fmt.Sprintf("%s failed: %s", verb, reason), err.Error())

	case post.IsInconsistentState(err):
		return f.fail(ExitFailure, ErrCodeInconsistent, err.Error(), nil)

	case remote.IsTransportFailure(err):
		msg := "remote request failed"
		if status := remote.StatusCode(err); status != 0 {
			msg = fmt.Sprintf("%s with status %d", msg, status)
		}
		if reason := remote.Reason(err); reason != "" {
			msg = fmt.Sprintf("%s: %s", msg, reason)
		}
		return f.fail(ExitFailure, ErrCodeTransport, msg, err.Error())

	default:
		return f.fail(ExitFailure, ErrCodeGeneric, err.Error(), nil)
	}
}
