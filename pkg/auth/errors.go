package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	// ErrDiscovery matches every DiscoveryError.
	ErrDiscovery = errors.New("auth: endpoint discovery failed")

	// ErrRefresh matches every AuthRefreshError.
	ErrRefresh = errors.New("auth: failed to refresh token")

	// ErrAssertion matches every AssertionError.
	ErrAssertion = errors.New("auth: failed to sign assertion")

	// ErrInvalidKeyFile matches every KeyFileError.
	ErrInvalidKeyFile = errors.New("auth: invalid key file")

	// ErrInvalidConfig is returned by constructors and builders when a
	// required setting is missing or malformed.
	ErrInvalidConfig = errors.New("auth: invalid configuration")

	// ErrBuilderUsed is returned when Build is called a second time.
	ErrBuilderUsed = errors.New("auth: builder already used")

	// ErrMissingTokenEndpoint is wrapped in a DiscoveryError when the
	// document parses but names no token endpoint.
	ErrMissingTokenEndpoint = errors.New("auth: discovery document has no token_endpoint")

	// ErrMissingAccessToken is wrapped in an AuthRefreshError when a 2xx
	// token response carries no access_token.
	ErrMissingAccessToken = errors.New("auth: token response has no access_token")
)

// ============================================================================
// Typed errors
// ============================================================================

// DiscoveryError is returned when the discovery document cannot be fetched
// or used. It is always fatal: the authenticator is never built.
type DiscoveryError struct {
	// URL is the discovery document location.
	URL string

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	Err error
}

func (e *DiscoveryError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err == nil:
		return fmt.Sprintf("auth: failed to fetch OpenID configuration from %s: HTTP %d", e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("auth: failed to fetch OpenID configuration from %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("auth: failed to fetch OpenID configuration from %s", e.URL)
	}
}

func (e *DiscoveryError) Unwrap() error        { return e.Err }
func (e *DiscoveryError) Is(target error) bool { return target == ErrDiscovery }

// AuthRefreshError is the single error kind for a failed token request,
// whatever went wrong: transport, non-2xx status, or a malformed response.
// The cause is kept for errors.As / errors.Is.
type AuthRefreshError struct {
	Err error
}

func (e *AuthRefreshError) Error() string {
	return fmt.Sprintf("failed to refresh token: %v", e.Err)
}

func (e *AuthRefreshError) Unwrap() error        { return e.Err }
func (e *AuthRefreshError) Is(target error) bool { return target == ErrRefresh }

// AssertionError means a bearer assertion could not be signed. Retrying
// won't help; the key material or algorithm is wrong.
type AssertionError struct {
	Alg string
	Err error
}

func (e *AssertionError) Error() string {
	if e.Alg == "" {
		return fmt.Sprintf("failed to generate JWT assertion: %v", e.Err)
	}
	return fmt.Sprintf("failed to generate %s JWT assertion: %v", e.Alg, e.Err)
}

func (e *AssertionError) Unwrap() error        { return e.Err }
func (e *AssertionError) Is(target error) bool { return target == ErrAssertion }

// KeyFileError reports a key file that could not be read or is missing a
// required field.
type KeyFileError struct {
	Path  string // empty when parsed from memory
	Field string // JSON field at fault, if any
	Err   error
}

func (e *KeyFileError) Error() string {
	msg := "auth: invalid key file"
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Field != "" {
		msg += fmt.Sprintf(": field %q", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *KeyFileError) Unwrap() error        { return e.Err }
func (e *KeyFileError) Is(target error) bool { return target == ErrInvalidKeyFile }

// ============================================================================
// OAuth2Error - token endpoint error bodies (RFC 6749 section 5.2)
// ============================================================================

// OAuth2Error is what a token endpoint says when it refuses a grant. It
// always reaches callers wrapped in an AuthRefreshError.
type OAuth2Error struct {
	// StatusCode is the HTTP status code of the response
	StatusCode int `json:"-"`

	// Code is the OAuth2 error code (e.g., "invalid_client", "invalid_grant")
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *OAuth2Error) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%s (HTTP %d)", e.Code, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (HTTP %d)", e.Code, e.Description, e.StatusCode)
}

// parseErrorResponse turns a non-2xx token endpoint response into an
// OAuth2Error, falling back to the HTTP status text when the body is not
// an RFC 6749 error document.
func parseErrorResponse(statusCode int, body []byte) *OAuth2Error {
	var errResp OAuth2Error
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Code != "" {
		errResp.StatusCode = statusCode
		return &errResp
	}

	return &OAuth2Error{
		StatusCode:  statusCode,
		Code:        "server_error",
		Description: http.StatusText(statusCode),
	}
}
