package action

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/postsync/internal/clock"
	"github.com/roach88/postsync/internal/metrics"
)

// IDGenerator generates correlation ids for action runs.
// Implemented by UUIDv7Generator (production) and
// testutil.SequenceIDGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 action ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

type options struct {
	clock   clock.Clock
	ids     IDGenerator
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures PostActions and AuthActions.
type Option func(*options)

// WithClock sets the clock used for timestamps and the logout timer.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithIDGenerator sets the action id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) {
		o.ids = g
	}
}

// WithMetrics records action outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func buildOptions(opts []Option) options {
	o := options{
		clock: clock.System{},
		ids:   UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// run is one traced action invocation.
type run struct {
	name    string
	log     *slog.Logger
	metrics *metrics.Metrics
}

func (o options) begin(name string) run {
	log := o.logger.With("action", name, "action_id", o.ids.Generate())
	log.Debug("action started")
	return run{name: name, log: log, metrics: o.metrics}
}

func (r run) finish(err error) {
	r.metrics.ObserveAction(r.name, err)
	if err != nil {
		r.log.Debug("action failed", "error", err)
		return
	}
	r.log.Debug("action committed")
}
