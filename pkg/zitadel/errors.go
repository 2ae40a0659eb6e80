package zitadel

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAPI matches every APIError, including UnauthorizedError.
	ErrAPI = errors.New("zitadel: API error")

	// ErrUnauthorized matches UnauthorizedError only.
	ErrUnauthorized = errors.New("zitadel: unauthorized")
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Code    int
	Headers http.Header
	Body    []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("zitadel: error %d", e.Code)
}

func (e *APIError) Is(target error) bool { return target == ErrAPI }

// UnauthorizedError is an APIError with status 401 or 403. With a
// personal access token this usually means the token was revoked.
type UnauthorizedError struct {
	APIError
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("zitadel: unauthorized (%d)", e.Code)
}

func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized || target == ErrAPI
}

// Unwrap lets errors.As find the embedded *APIError.
func (e *UnauthorizedError) Unwrap() error { return &e.APIError }

func newAPIError(resp *http.Response, body []byte) error {
	apiErr := APIError{
		Code:    resp.StatusCode,
		Headers: resp.Header.Clone(),
		Body:    body,
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &UnauthorizedError{APIError: apiErr}
	default:
		return &apiErr
	}
}
