package httpx

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// UserAgent builds the product token sent on every request, e.g.
//
//	zitadel-client/1.2.0 (lang=go; lang_version=go1.25.0; os=linux; arch=amd64)
//
// It is lower-cased so servers can match on it without caring.
func UserAgent(product, version string) string {
	return strings.ToLower(fmt.Sprintf("%s/%s (lang=go; lang_version=%s; os=%s; arch=%s)",
		product, version, runtime.Version(), runtime.GOOS, runtime.GOARCH))
}

// UserAgentTransport sets User-Agent on requests that don't have one.
type UserAgentTransport struct {
	Base      http.RoundTripper
	UserAgent string
}

// WithUserAgent wraps base so outbound requests carry ua.
func WithUserAgent(base http.RoundTripper, ua string) http.RoundTripper {
	if ua == "" {
		return orDefault(base)
	}
	return &UserAgentTransport{Base: base, UserAgent: ua}
}

func (t *UserAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.UserAgent)
	}
	return orDefault(t.Base).RoundTrip(req)
}
