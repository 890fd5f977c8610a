package action

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/roach88/postsync/internal/clock"
	"github.com/roach88/postsync/internal/remote"
)

// Logout reasons recorded in metrics.
const (
	LogoutExplicit = "explicit"
	LogoutExpired  = "expired"
)

// SessionStore is the session capability AuthActions needs.
// session.Store implements it.
type SessionStore interface {
	SetToken(ctx context.Context, token string, expiresIn time.Duration) error
	Clear(ctx context.Context) error
	Restore(ctx context.Context) (bool, error)
	Remaining(now time.Time) time.Duration
}

// Credentials select and feed the identity endpoint. IsLogin chooses
// sign-in; otherwise a new account is created.
type Credentials struct {
	Email    string
	Password string
	IsLogin  bool
}

type authRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type authResponse struct {
	IDToken   string  `json:"idToken"`
	ExpiresIn seconds `json:"expiresIn"`
}

// maxSeconds bounds expiresIn so it converts to a time.Duration exactly.
const maxSeconds = float64(math.MaxInt64 / int64(time.Second))

// seconds decodes a duration sent either as a decimal string ("3600", as the
// identity toolkit does) or as a JSON number.
type seconds time.Duration

func (s *seconds) UnmarshalJSON(data []byte) error {
	var raw json.Number
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		raw = json.Number(str)
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	n, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return fmt.Errorf("expiresIn %q: %w", raw, err)
	}
	if math.IsNaN(n) || math.Abs(n) >= maxSeconds {
		return fmt.Errorf("expiresIn %q: out of range", raw)
	}
	*s = seconds(time.Duration(n * float64(time.Second)))
	return nil
}

// AuthActions signs users in or up, keeps the session store current and
// logs out automatically when the token expires.
//
// Thread-safety: all methods are safe for concurrent use.
type AuthActions struct {
	client   remote.Client
	session  SessionStore
	identity remote.Identity
	opts     options

	// sessMu orders session transitions: a timed logout and a login cannot
	// interleave between the generation check and the store write.
	// Lock order is sessMu, then mu.
	sessMu sync.Mutex

	mu    sync.Mutex
	timer clock.Timer
	// gen invalidates callbacks of replaced timers whose Stop came too late.
	gen uint64
}

// NewAuthActions creates auth actions against the given identity endpoints.
func NewAuthActions(client remote.Client, sess SessionStore, identity remote.Identity, opts ...Option) *AuthActions {
	return &AuthActions{
		client:   client,
		session:  sess,
		identity: identity,
		opts:     buildOptions(opts),
	}
}

// Authenticate signs in (IsLogin) or signs up, stores the returned token and
// arms the logout timer for its lifetime.
//
// A rejected or failed request returns *AuthError and leaves the session
// unchanged.
func (a *AuthActions) Authenticate(ctx context.Context, creds Credentials) (err error) {
	name := "auth.signup"
	if creds.IsLogin {
		name = "auth.login"
	}
	r := a.opts.begin(name)
	defer func() { r.finish(err) }()

	fail := func(err error) error {
		return &AuthError{
			Code:    ErrCodeAuthFailure,
			Email:   creds.Email,
			IsLogin: creds.IsLogin,
			Reason:  remote.Reason(err),
			Err:     err,
		}
	}

	data, err := a.client.Post(ctx, a.identity.URL(creds.IsLogin), authRequest{
		Email:             creds.Email,
		Password:          creds.Password,
		ReturnSecureToken: true,
	})
	if err != nil {
		return fail(err)
	}

	var resp authResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return fail(fmt.Errorf("%w: %w", ErrMalformedResponse, err))
	}
	if resp.IDToken == "" {
		return fail(fmt.Errorf("%w: missing idToken", ErrMalformedResponse))
	}
	expiresIn := time.Duration(resp.ExpiresIn)
	if expiresIn <= 0 {
		return fail(fmt.Errorf("%w: non-positive expiresIn", ErrMalformedResponse))
	}

	a.sessMu.Lock()
	defer a.sessMu.Unlock()
	if err := a.session.SetToken(ctx, resp.IDToken, expiresIn); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	a.SetLogoutTimer(expiresIn)

	r.log.Info("session established", "email", creds.Email, "expires_in", expiresIn)
	return nil
}

// SetLogoutTimer arranges a single automatic logout after d. Any pending
// timer is cancelled first.
func (a *AuthActions) SetLogoutTimer(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancelTimerLocked()
	gen := a.gen
	a.timer = a.opts.clock.AfterFunc(d, func() { a.expire(gen) })
}

// LogoutPending reports whether an automatic logout is armed.
func (a *AuthActions) LogoutPending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timer != nil
}

// Logout cancels the timer and clears the session.
func (a *AuthActions) Logout(ctx context.Context) (err error) {
	r := a.opts.begin("auth.logout")
	defer func() { r.finish(err) }()

	a.sessMu.Lock()
	defer a.sessMu.Unlock()

	a.mu.Lock()
	a.cancelTimerLocked()
	a.mu.Unlock()

	a.opts.metrics.ObserveLogout(LogoutExplicit)
	if err := a.session.Clear(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Restore rehydrates a persisted session and arms the timer for its
// remaining lifetime. Reports whether a live session was restored.
func (a *AuthActions) Restore(ctx context.Context) (bool, error) {
	a.sessMu.Lock()
	defer a.sessMu.Unlock()

	restored, err := a.session.Restore(ctx)
	if err != nil {
		return false, err
	}
	if !restored {
		return false, nil
	}

	remaining := a.session.Remaining(a.opts.clock.Now())
	a.SetLogoutTimer(remaining)
	a.opts.logger.Debug("session restored", "remaining", remaining)
	return true, nil
}

// Close cancels any pending logout without touching the session.
func (a *AuthActions) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelTimerLocked()
}

func (a *AuthActions) cancelTimerLocked() {
	a.gen++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func (a *AuthActions) current(gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return gen == a.gen
}

func (a *AuthActions) expire(gen uint64) {
	if !a.current(gen) {
		return
	}
	r := a.opts.begin("auth.expire")

	a.sessMu.Lock()
	defer a.sessMu.Unlock()

	// A login may have replaced the session while this callback waited.
	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		r.log.Debug("logout skipped, session replaced")
		return
	}
	a.timer = nil
	a.gen++
	a.mu.Unlock()

	a.opts.metrics.ObserveLogout(LogoutExpired)

	// No caller is waiting on this path, so failures can only be logged.
	err := a.session.Clear(context.Background())
	r.finish(err)
	if err != nil {
		r.log.Error("automatic logout failed", "error", err)
		return
	}
	r.log.Info("session expired, logged out")
}
