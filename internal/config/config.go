package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/postsync/internal/remote"
)

// Defaults.
const (
	DefaultFile        = "postsync.yaml"
	DefaultEnvFile     = ".env"
	DefaultStoragePath = "postsync.db"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
)

// Environment variables that override the file.
const (
	EnvBaseURL = "BASE_URL"
	EnvAPIKey  = "FIREBASE_API_KEY"
	EnvDBPath  = "POSTSYNC_DB"
)

// Error codes.
const (
	ErrCodeRead    = "CONFIG_READ"
	ErrCodeDecode  = "CONFIG_DECODE"
	ErrCodeInvalid = "CONFIG_INVALID"
)

//go:embed schema.cue
var schemaSource string

// Config is the complete postsync configuration.
type Config struct {
	Remote  Remote  `yaml:"remote" json:"remote"`
	Storage Storage `yaml:"storage" json:"storage"`
	Log     Log     `yaml:"log" json:"log"`
}

// Remote locates the document store and identity service.
type Remote struct {
	BaseURL     string `yaml:"base_url" json:"base_url"`
	APIKey      string `yaml:"api_key" json:"api_key"`
	IdentityURL string `yaml:"identity_url" json:"identity_url"`
}

// Storage locates the durable session database.
type Storage struct {
	Path string `yaml:"path" json:"path"`
}

// Log selects the slog handler.
type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Identity returns the identity endpoints for c.
func (c Config) Identity() remote.Identity {
	return remote.Identity{BaseURL: c.Remote.IdentityURL, APIKey: c.Remote.APIKey}
}

// Default returns the built-in configuration. BaseURL has no default.
func Default() Config {
	return Config{
		Remote:  Remote{IdentityURL: remote.DefaultIdentityURL},
		Storage: Storage{Path: DefaultStoragePath},
		Log:     Log{Level: DefaultLogLevel, Format: DefaultLogFormat},
	}
}

// ConfigError describes why configuration could not be loaded.
type ConfigError struct {
	Code    string
	Source  string
	Details []string
	Err     error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	if e.Source != "" {
		fmt.Fprintf(&b, ": %s", e.Source)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	for _, d := range e.Details {
		b.WriteString("\n  ")
		b.WriteString(d)
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsInvalid reports whether err is a schema validation failure.
func IsInvalid(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce) && ce.Code == ErrCodeInvalid
}

type loadOptions struct {
	envFile   string
	lookupEnv func(string) (string, bool)
}

// Option configures Load.
type Option func(*loadOptions)

// WithEnvFile reads overrides from path instead of ./.env. An empty path
// disables the .env layer.
func WithEnvFile(path string) Option {
	return func(o *loadOptions) {
		o.envFile = path
	}
}

// WithLookupEnv replaces os.LookupEnv. Tests use it to isolate from the
// process environment.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(o *loadOptions) {
		o.lookupEnv = fn
	}
}

// Load builds the configuration. An empty path means DefaultFile, which may
// be absent; an explicitly named file must exist.
func Load(path string, opts ...Option) (Config, error) {
	o := loadOptions{envFile: DefaultEnvFile, lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	f, err := os.Open(path)
	switch {
	case err == nil:
		decodeErr := decode(f, &cfg)
		f.Close()
		if decodeErr != nil {
			return Config{}, &ConfigError{Code: ErrCodeDecode, Source: path, Err: decodeErr}
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, &ConfigError{Code: ErrCodeRead, Source: path, Err: err}
	}

	if o.envFile != "" {
		env, err := godotenv.Read(o.envFile)
		switch {
		case err == nil:
			applyEnv(&cfg, func(k string) (string, bool) {
				v, ok := env[k]
				return v, ok
			})
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, &ConfigError{Code: ErrCodeRead, Source: o.envFile, Err: err}
		}
	}
	applyEnv(&cfg, o.lookupEnv)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decode reads YAML into cfg, rejecting unknown keys. An empty file leaves
// cfg untouched.
func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvBaseURL); ok && v != "" {
		cfg.Remote.BaseURL = v
	}
	if v, ok := lookup(EnvAPIKey); ok && v != "" {
		cfg.Remote.APIKey = v
	}
	if v, ok := lookup(EnvDBPath); ok && v != "" {
		cfg.Storage.Path = v
	}
}

// Validate checks cfg against the embedded CUE schema. Every violation is
// reported in Details.
func Validate(cfg Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return &ConfigError{Code: ErrCodeInvalid, Source: "schema.cue", Err: err}
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	val := def.Unify(ctx.Encode(cfg))
	if err := val.Validate(cue.Concrete(true)); err != nil {
		var details []string
		for _, e := range cueerrors.Errors(err) {
			details = append(details, strings.TrimSpace(cueerrors.Details(e, nil)))
		}
		return &ConfigError{
			Code:    ErrCodeInvalid,
			Details: details,
			Err:     errors.New("configuration does not match schema"),
		}
	}
	return nil
}
