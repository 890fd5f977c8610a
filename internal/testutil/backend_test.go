package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/postsync/internal/post"
)

func do(t *testing.T, method, url, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestFakeBackend_EmptyCollectionIsNull(t *testing.T) {
	b := NewFakeBackend(t)
	status, body := do(t, http.MethodGet, b.URL()+"/posts.json", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "null", body)
}

func TestFakeBackend_PostThenGetKeepsOrder(t *testing.T) {
	b := NewFakeBackend(t)
	b.SeedPost("zz", post.Record{Title: "first"})

	status, body := do(t, http.MethodPost, b.URL()+"/posts.json", `{"title":"second"}`)
	require.Equal(t, http.StatusOK, status)

	var created struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &created))
	require.NotEmpty(t, created.Name)

	assert.Equal(t, []string{"zz", created.Name}, b.IDs())

	_, body = do(t, http.MethodGet, b.URL()+"/posts.json", "")
	assert.True(t, strings.Index(body, `"zz"`) < strings.Index(body, created.Name))
}

func TestFakeBackend_QueueIDs(t *testing.T) {
	b := NewFakeBackend(t)
	b.QueueIDs("fixed-1")

	_, body := do(t, http.MethodPost, b.URL()+"/posts.json", `{"title":"a"}`)
	assert.JSONEq(t, `{"name":"fixed-1"}`, body)

	_, body = do(t, http.MethodPost, b.URL()+"/posts.json", `{"title":"b"}`)
	assert.NotContains(t, body, "fixed-1")
}

func TestFakeBackend_PutReplaces(t *testing.T) {
	b := NewFakeBackend(t)
	b.SeedRaw("a1", json.RawMessage(`{"title":"old"}`))

	status, _ := do(t, http.MethodPut, b.URL()+"/posts/a1.json", `{"title":"new"}`)
	require.Equal(t, http.StatusOK, status)

	raw, ok := b.Record("a1")
	require.True(t, ok)
	assert.JSONEq(t, `{"title":"new"}`, string(raw))
	assert.Equal(t, []string{"a1"}, b.IDs())
}

func TestFakeBackend_FailNext(t *testing.T) {
	b := NewFakeBackend(t)
	b.FailNext(http.StatusServiceUnavailable, `{"error":"down"}`)

	status, body := do(t, http.MethodGet, b.URL()+"/posts.json", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.JSONEq(t, `{"error":"down"}`, body)

	status, _ = do(t, http.MethodGet, b.URL()+"/posts.json", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, b.Requests(), 2)
}

func TestFakeBackend_Identity(t *testing.T) {
	b := NewFakeBackend(t)
	signUp := b.IdentityURL() + "/accounts:signUp?key=" + b.APIKey()
	signIn := b.IdentityURL() + "/accounts:signInWithPassword?key=" + b.APIKey()

	status, body := do(t, http.MethodPost, signIn, `{"email":"a@b.c","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "EMAIL_NOT_FOUND")

	status, body = do(t, http.MethodPost, signUp, `{"email":"a@b.c","password":"secret1","returnSecureToken":true}`)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"expiresIn":"3600"`)

	status, body = do(t, http.MethodPost, signUp, `{"email":"a@b.c","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "EMAIL_EXISTS")

	status, body = do(t, http.MethodPost, signIn, `{"email":"a@b.c","password":"wrong"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "INVALID_PASSWORD")

	status, _ = do(t, http.MethodPost, signIn, `{"email":"a@b.c","password":"secret1"}`)
	assert.Equal(t, http.StatusOK, status)
}

func TestFakeBackend_BadAPIKey(t *testing.T) {
	b := NewFakeBackend(t)
	status, body := do(t, http.MethodPost, b.IdentityURL()+"/accounts:signUp?key=nope", `{"email":"a@b.c","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "API key not valid")
}

func TestFakeBackend_RequireAuth(t *testing.T) {
	b := NewFakeBackend(t)
	b.RequireAuth()
	b.AddUser("a@b.c", "secret1")

	status, body := do(t, http.MethodGet, b.URL()+"/posts.json", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, body, "Permission denied")

	_, body = do(t, http.MethodPost, b.IdentityURL()+"/accounts:signInWithPassword?key="+b.APIKey(), `{"email":"a@b.c","password":"secret1"}`)
	var resp struct {
		IDToken string `json:"idToken"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &resp))

	status, _ = do(t, http.MethodGet, b.URL()+"/posts.json?auth="+resp.IDToken, "")
	assert.Equal(t, http.StatusOK, status)
}
