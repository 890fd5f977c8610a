package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/roach88/postsync/internal/post"
)

// FakeBackend is an in-process stand-in for the Firebase database and
// identity REST APIs.
//
// Database routes:
//
//	GET  /posts.json        ordered map of records, or null when empty
//	POST /posts.json        append, responds {"name": "<new id>"}
//	PUT  /posts/{id}.json   replace (or create) the record
//
// Identity routes (under /v1):
//
//	POST /v1/accounts:signInWithPassword?key=...
//	POST /v1/accounts:signUp?key=...
//
// Failures can be queued with FailNext; each queued failure answers exactly
// one request. Every request is recorded.
//
// Thread-safety: FakeBackend is safe for concurrent use.
type FakeBackend struct {
	server *httptest.Server

	mu          sync.Mutex
	order       []string
	records     map[string]json.RawMessage
	users       map[string]string
	tokens      map[string]bool
	failures    []failure
	nextIDs     []string
	requests    []Request
	apiKey      string
	tokenTTL    time.Duration
	requireAuth bool
	secret      []byte
}

// Request is a recorded call to the FakeBackend.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type failure struct {
	status int
	body   string
}

// NewFakeBackend starts a backend that is shut down when the test ends.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	b := &FakeBackend{
		records:  make(map[string]json.RawMessage),
		users:    make(map[string]string),
		tokens:   make(map[string]bool),
		apiKey:   "test-api-key",
		tokenTTL: time.Hour,
		secret:   []byte("fake-backend-secret"),
	}
	b.server = httptest.NewServer(b)
	t.Cleanup(b.server.Close)
	return b
}

// URL is the database origin.
func (b *FakeBackend) URL() string {
	return b.server.URL
}

// IdentityURL is the identity API base, to be used as remote.Identity.BaseURL.
func (b *FakeBackend) IdentityURL() string {
	return b.server.URL + "/v1"
}

// APIKey is the key the identity routes accept.
func (b *FakeBackend) APIKey() string {
	return b.apiKey
}

// SetTokenTTL changes the lifetime reported for new tokens.
func (b *FakeBackend) SetTokenTTL(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokenTTL = d
}

// RequireAuth makes database routes reject requests without an issued token.
func (b *FakeBackend) RequireAuth() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requireAuth = true
}

// AddUser registers an account for sign-in.
func (b *FakeBackend) AddUser(email, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[email] = password
}

// SeedPost stores a record under id, appended to the document order.
func (b *FakeBackend) SeedPost(id string, rec post.Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		panic(err)
	}
	b.SeedRaw(id, data)
}

// SeedRaw stores raw JSON under id, appended to the document order.
func (b *FakeBackend) SeedRaw(id string, raw json.RawMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.putLocked(id, raw)
}

// Record returns the stored JSON for id.
func (b *FakeBackend) Record(id string) (json.RawMessage, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, ok := b.records[id]
	return raw, ok
}

// IDs returns stored ids in document order.
func (b *FakeBackend) IDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.order...)
}

// QueueIDs fixes the ids assigned to the next POSTs to the collection.
func (b *FakeBackend) QueueIDs(ids ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextIDs = append(b.nextIDs, ids...)
}

// FailNext queues a failure response for the next request.
func (b *FakeBackend) FailNext(status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = append(b.failures, failure{status: status, body: body})
}

// Requests returns every request received so far.
func (b *FakeBackend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// ServeHTTP implements http.Handler.
func (b *FakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.requests = append(b.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Body:   string(body),
	})

	if len(b.failures) > 0 {
		f := b.failures[0]
		b.failures = b.failures[1:]
		writeRaw(w, f.status, []byte(f.body))
		return
	}

	switch {
	case strings.HasPrefix(r.URL.Path, "/v1/"):
		b.serveIdentity(w, r, body)
	case r.URL.Path == "/posts.json":
		if !b.authorizedLocked(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Permission denied"})
			return
		}
		b.serveCollection(w, r, body)
	case strings.HasPrefix(r.URL.Path, "/posts/") && strings.HasSuffix(r.URL.Path, ".json"):
		if !b.authorizedLocked(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Permission denied"})
			return
		}
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/posts/"), ".json")
		b.serveDocument(w, r, id, body)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	}
}

func (b *FakeBackend) authorizedLocked(r *http.Request) bool {
	if !b.requireAuth {
		return true
	}
	return b.tokens[r.URL.Query().Get("auth")]
}

func (b *FakeBackend) serveCollection(w http.ResponseWriter, r *http.Request, body []byte) {
	switch r.Method {
	case http.MethodGet:
		if len(b.order) == 0 {
			writeRaw(w, http.StatusOK, []byte("null"))
			return
		}
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, id := range b.order {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(id)
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(b.records[id])
		}
		buf.WriteByte('}')
		writeRaw(w, http.StatusOK, buf.Bytes())
	case http.MethodPost:
		if !json.Valid(body) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid data; couldn't parse JSON object."})
			return
		}
		id := uuid.Must(uuid.NewV7()).String()
		if len(b.nextIDs) > 0 {
			id, b.nextIDs = b.nextIDs[0], b.nextIDs[1:]
		}
		b.putLocked(id, body)
		writeJSON(w, http.StatusOK, map[string]string{"name": id})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
	}
}

func (b *FakeBackend) serveDocument(w http.ResponseWriter, r *http.Request, id string, body []byte) {
	switch r.Method {
	case http.MethodGet:
		raw, ok := b.records[id]
		if !ok {
			writeRaw(w, http.StatusOK, []byte("null"))
			return
		}
		writeRaw(w, http.StatusOK, raw)
	case http.MethodPut:
		if !json.Valid(body) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid data; couldn't parse JSON object."})
			return
		}
		b.putLocked(id, body)
		writeRaw(w, http.StatusOK, body)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
	}
}

func (b *FakeBackend) putLocked(id string, raw json.RawMessage) {
	if _, exists := b.records[id]; !exists {
		b.order = append(b.order, id)
	}
	b.records[id] = append(json.RawMessage(nil), raw...)
}

type identityRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

func (b *FakeBackend) serveIdentity(w http.ResponseWriter, r *http.Request, body []byte) {
	if r.Method != http.MethodPost {
		identityError(w, http.StatusNotFound, "NOT_FOUND")
		return
	}
	if r.URL.Query().Get("key") != b.apiKey {
		identityError(w, http.StatusBadRequest, "API key not valid. Please pass a valid API key.")
		return
	}

	var req identityRequest
	if err := json.Unmarshal(body, &req); err != nil {
		identityError(w, http.StatusBadRequest, "INVALID_JSON")
		return
	}
	if req.Email == "" {
		identityError(w, http.StatusBadRequest, "INVALID_EMAIL")
		return
	}

	switch r.URL.Path {
	case "/v1/accounts:signInWithPassword":
		pw, ok := b.users[req.Email]
		if !ok {
			identityError(w, http.StatusBadRequest, "EMAIL_NOT_FOUND")
			return
		}
		if pw != req.Password {
			identityError(w, http.StatusBadRequest, "INVALID_PASSWORD")
			return
		}
	case "/v1/accounts:signUp":
		if _, exists := b.users[req.Email]; exists {
			identityError(w, http.StatusBadRequest, "EMAIL_EXISTS")
			return
		}
		if len(req.Password) < 6 {
			identityError(w, http.StatusBadRequest, "WEAK_PASSWORD : Password should be at least 6 characters")
			return
		}
		b.users[req.Email] = req.Password
	default:
		identityError(w, http.StatusNotFound, "NOT_FOUND")
		return
	}

	localID := uuid.NewSHA1(uuid.NameSpaceURL, []byte(req.Email)).String()
	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email":   req.Email,
		"user_id": localID,
		"sub":     localID,
		"iat":     now.Unix(),
		"exp":     now.Add(b.tokenTTL).Unix(),
	}).SignedString(b.secret)
	if err != nil {
		identityError(w, http.StatusInternalServerError, "INTERNAL")
		return
	}
	b.tokens[token] = true

	writeJSON(w, http.StatusOK, map[string]any{
		"kind":         "identitytoolkit#VerifyPasswordResponse",
		"localId":      localID,
		"email":        req.Email,
		"idToken":      token,
		"refreshToken": "refresh-" + localID,
		"expiresIn":    fmt.Sprintf("%d", int64(b.tokenTTL/time.Second)),
	})
}

func identityError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	writeRaw(w, status, data)
}

func writeRaw(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
