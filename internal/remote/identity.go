package remote

import (
	"net/url"
	"strings"
)

// DefaultIdentityURL is the base of the Google identity toolkit REST API.
const DefaultIdentityURL = "https://identitytoolkit.googleapis.com/v1"

// Identity builds the sign-in and sign-up endpoint URLs.
type Identity struct {
	BaseURL string
	APIKey  string
}

// SignInURL is the password sign-in endpoint.
func (i Identity) SignInURL() string {
	return i.endpoint("accounts:signInWithPassword")
}

// SignUpURL is the account creation endpoint.
func (i Identity) SignUpURL() string {
	return i.endpoint("accounts:signUp")
}

// URL selects the sign-in endpoint when isLogin is true, sign-up otherwise.
func (i Identity) URL(isLogin bool) string {
	if isLogin {
		return i.SignInURL()
	}
	return i.SignUpURL()
}

func (i Identity) endpoint(op string) string {
	base := i.BaseURL
	if base == "" {
		base = DefaultIdentityURL
	}
	return strings.TrimRight(base, "/") + "/" + op + "?key=" + url.QueryEscape(i.APIKey)
}
