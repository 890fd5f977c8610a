// Package app wires postsync together: durable storage, the session and
// post stores, the remote client and the actions that drive them.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/postsync/internal/action"
	"github.com/roach88/postsync/internal/clock"
	"github.com/roach88/postsync/internal/config"
	"github.com/roach88/postsync/internal/kv"
	"github.com/roach88/postsync/internal/metrics"
	"github.com/roach88/postsync/internal/post"
	"github.com/roach88/postsync/internal/remote"
	"github.com/roach88/postsync/internal/session"
)

// App owns every long-lived postsync component. Close releases them.
type App struct {
	Config   config.Config
	Log      *slog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Storage *kv.Store
	Session *session.Store
	Posts   *post.Store
	Client  *remote.HTTPClient

	PostActions *action.PostActions
	Auth        *action.AuthActions

	clock       clock.Clock
	metricsFile string
}

type options struct {
	clock       clock.Clock
	httpClient  *http.Client
	ids         action.IDGenerator
	metricsFile string
}

// Option customizes New.
type Option func(*options)

// WithClock replaces the wall clock (timestamps and the logout timer).
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithHTTPClient replaces the HTTP client used for remote calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithIDGenerator replaces the action id generator.
func WithIDGenerator(g action.IDGenerator) Option {
	return func(o *options) {
		o.ids = g
	}
}

// WithMetricsFile makes Close write the registry to path in the Prometheus
// text format, for collection by a node exporter textfile collector.
func WithMetricsFile(path string) Option {
	return func(o *options) {
		o.metricsFile = path
	}
}

// New builds an App from cfg. The session is not restored; call Restore.
func New(cfg config.Config, log *slog.Logger, opts ...Option) (*App, error) {
	o := options{clock: clock.System{}}
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = slog.Default()
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	storage, err := kv.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	sess := session.NewStore(storage, o.clock, session.WithMetrics(m))

	clientOpts := []remote.Option{
		remote.WithTokenSource(session.ActiveTokens{Store: sess}),
		remote.WithMetrics(m),
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, remote.WithHTTPClient(o.httpClient))
	}
	client, err := remote.New(cfg.Remote.BaseURL, clientOpts...)
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("remote client: %w", err)
	}

	actionOpts := []action.Option{
		action.WithClock(o.clock),
		action.WithMetrics(m),
		action.WithLogger(log),
	}
	if o.ids != nil {
		actionOpts = append(actionOpts, action.WithIDGenerator(o.ids))
	}

	posts := post.NewStore()
	return &App{
		Config:      cfg,
		Log:         log,
		Registry:    reg,
		Metrics:     m,
		Storage:     storage,
		Session:     sess,
		Posts:       posts,
		Client:      client,
		PostActions: action.NewPostActions(client, posts, actionOpts...),
		Auth:        action.NewAuthActions(client, sess, cfg.Identity(), actionOpts...),
		clock:       o.clock,
		metricsFile: o.metricsFile,
	}, nil
}

// Now returns the App's current time.
func (a *App) Now() time.Time {
	return a.clock.Now()
}

// Restore rehydrates the persisted session, if any, and arms its logout
// timer.
func (a *App) Restore(ctx context.Context) (bool, error) {
	restored, err := a.Auth.Restore(ctx)
	if err != nil {
		return false, fmt.Errorf("restore session: %w", err)
	}
	a.Log.Debug("session restore", "restored", restored)
	return restored, nil
}

// Close stops the logout timer, writes the metrics file if one was
// configured and closes storage.
func (a *App) Close() error {
	a.Auth.Close()

	var errs []error
	if a.metricsFile != "" {
		if err := prometheus.WriteToTextfile(a.metricsFile, a.Registry); err != nil {
			a.Log.Warn("metrics not written", "path", a.metricsFile, "error", err)
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if err := a.Storage.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}
	return errors.Join(errs...)
}
