package shop

import (
	"context"
	"errors"
	"fmt"
)

// Class buckets remote failures for the retry policy. Network-level
// failures are transient, throttling gets its own longer wait, auth
// failures trigger a single token refresh, everything else is final.
type Class int

const (
	ClassTransient Class = iota
	ClassRateLimited
	ClassAuth
	ClassPermanent
)

func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassRateLimited:
		return "rate_limited"
	case ClassAuth:
		return "auth"
	default:
		return "permanent"
	}
}

// APIError is a non-zero errcode (or bad HTTP status) returned by the
// Channels Shop API.
type APIError struct {
	Code       int    // errcode from the response body, 0 if none
	Message    string // errmsg from the response body
	HTTPStatus int    // HTTP status, 0 when the body carried the error
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("shop api error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("shop api http %d: %s", e.HTTPStatus, e.Message)
}

// Error codes the uploader has to care about. The full list lives in the
// platform docs; anything not recognized here is treated as permanent.
const (
	errInvalidCredential = 40001 // appid/secret rejected
	errInvalidToken      = 40014 // access_token malformed or revoked
	errTokenExpired      = 42001 // access_token expired
	errAPIPathInvalid    = 40066 // wrong endpoint path, a config bug
	errFreqLimit         = 45009 // api minute-quota reached
	errEntityNotFound    = 10020052
)

// Classify maps an upload error to its retry class. Errors that are not
// *APIError came from the transport and are assumed transient, except for
// context cancellation which must not be retried.
func Classify(err error) Class {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassPermanent
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return ClassTransient
	}

	switch apiErr.Code {
	case errInvalidCredential, errInvalidToken, errTokenExpired:
		return ClassAuth
	case errFreqLimit:
		return ClassRateLimited
	case errAPIPathInvalid, errEntityNotFound:
		return ClassPermanent
	}

	switch apiErr.HTTPStatus {
	case 401, 403:
		return ClassAuth
	case 429:
		return ClassRateLimited
	case 500, 502, 503, 504:
		return ClassTransient
	}

	return ClassPermanent
}
