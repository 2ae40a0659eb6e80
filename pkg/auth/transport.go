package auth

import (
	"net/http"
)

// Transport is an http.RoundTripper that adds the headers of an
// Authenticator to every request. It clones the request before touching
// it, as RoundTrippers must.
type Transport struct {
	Base          http.RoundTripper
	Authenticator Authenticator
}

// NewTransport wraps base (http.DefaultTransport if nil).
func NewTransport(base http.RoundTripper, authenticator Authenticator) *Transport {
	return &Transport{Base: base, Authenticator: authenticator}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	headers, err := t.Authenticator.AuthHeaders(req.Context())
	if err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}

	clone := req.Clone(req.Context())
	for k, v := range headers {
		clone.Header.Set(k, v)
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}
