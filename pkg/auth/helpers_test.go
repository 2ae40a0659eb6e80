package auth_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
)

// fakeIdP is a discovery document plus token endpoint. Token requests are
// counted and their forms recorded.
type fakeIdP struct {
	srv *httptest.Server

	discoveryCalls atomic.Int32
	tokenCalls     atomic.Int32
	forms          chan url.Values

	// token answers the n-th (1-based) token request. Nil means
	// issueToken.
	token func(w http.ResponseWriter, r *http.Request, n int32)
}

func newFakeIdP(t *testing.T, token func(w http.ResponseWriter, r *http.Request, n int32)) *fakeIdP {
	t.Helper()

	idp := &fakeIdP{
		forms: make(chan url.Values, 256),
		token: token,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		idp.discoveryCalls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{
			"issuer":                 idp.srv.URL,
			"authorization_endpoint": idp.srv.URL + "/oauth/v2/authorize",
			"token_endpoint":         idp.srv.URL + "/oauth/v2/token",
			"jwks_uri":               idp.srv.URL + "/oauth/v2/keys",
		})
	})
	mux.HandleFunc("POST /oauth/v2/token", func(w http.ResponseWriter, r *http.Request) {
		n := idp.tokenCalls.Add(1)

		if err := r.ParseForm(); err == nil {
			select {
			case idp.forms <- r.PostForm:
			default:
			}
		}

		if idp.token != nil {
			idp.token(w, r, n)
			return
		}
		issueToken(w, r, n)
	})

	idp.srv = httptest.NewServer(mux)
	t.Cleanup(idp.srv.Close)
	return idp
}

func (f *fakeIdP) URL() string { return f.srv.URL }

// lastForm returns the most recently recorded token request form.
func (f *fakeIdP) lastForm(t *testing.T) url.Values {
	t.Helper()

	var form url.Values
	for {
		select {
		case form = <-f.forms:
		default:
			if form == nil {
				t.Fatal("no token request recorded")
			}
			return form
		}
	}
}

func issueToken(w http.ResponseWriter, _ *http.Request, n int32) {
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": fmt.Sprintf("token-%d", n),
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newServer(t *testing.T, h http.Handler) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}
