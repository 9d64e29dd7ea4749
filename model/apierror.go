package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// ErrorKind is the completion-service error taxonomy. The kinds mirror the
// typed error bodies the service returns, plus a synthetic stream_error
// (status 0) for failures after headers were already accepted.
type ErrorKind string

const (
	ErrInvalidRequest  ErrorKind = "invalid_request"
	ErrAuthentication  ErrorKind = "authentication"
	ErrPermission      ErrorKind = "permission"
	ErrNotFound        ErrorKind = "not_found"
	ErrRequestTooLarge ErrorKind = "request_too_large"
	ErrRateLimit       ErrorKind = "rate_limit"
	ErrAPI             ErrorKind = "api_error"
	ErrOverloaded      ErrorKind = "overloaded"
	ErrStream          ErrorKind = "stream_error"
)

// ServiceError is a classified completion-service failure. MidStream is set
// by the decoder when the failure occurred after partial content had already
// arrived.
type ServiceError struct {
	Kind      ErrorKind
	Status    int
	Detail    string
	MidStream bool
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("completion service: %s (status %d): %s", e.Kind, e.Status, e.Detail)
}

// Transport reports whether the failure happened before any bytes of a
// response arrived. Only these failures are candidates for the automatic
// scheduler's single retry.
func (e *ServiceError) Transport() bool {
	return e.Status == 0 && !e.MidStream
}

// KindForStatus maps an HTTP status to an error kind.
func KindForStatus(status int) ErrorKind {
	switch status {
	case 400:
		return ErrInvalidRequest
	case 401:
		return ErrAuthentication
	case 403:
		return ErrPermission
	case 404:
		return ErrNotFound
	case 413:
		return ErrRequestTooLarge
	case 429:
		return ErrRateLimit
	case 529:
		return ErrOverloaded
	case 0:
		return ErrStream
	default:
		return ErrAPI
	}
}

// UserMessage returns the one fixed user-facing sentence for the kind. These
// render as an assistant-style message when an exchange fails.
func (e *ServiceError) UserMessage() string {
	switch e.Kind {
	case ErrInvalidRequest:
		return "The request was malformed and could not be processed."
	case ErrAuthentication:
		return "Your API key was rejected. Check your credentials in settings."
	case ErrPermission:
		return "Your API key does not have permission to use this model."
	case ErrNotFound:
		return "The requested model or resource was not found."
	case ErrRequestTooLarge:
		return "The conversation has grown too large to send. Try clearing the history."
	case ErrRateLimit:
		return "The service is rate limiting requests. Wait a moment and try again."
	case ErrOverloaded:
		return "The service is overloaded right now. Try again shortly."
	case ErrStream:
		return "The connection dropped while the reply was streaming in."
	default:
		return "The service hit an internal error. Try again shortly."
	}
}

// ClassifyError converts any error from the completion client into a
// ServiceError. SDK errors carry their HTTP status; everything else
// (connection refused, DNS, context cancellation) becomes a synthetic
// stream_error with status 0.
func ClassifyError(err error) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &ServiceError{
			Kind:   KindForStatus(apiErr.StatusCode),
			Status: apiErr.StatusCode,
			Detail: apiErr.Error(),
		}
	}
	return &ServiceError{
		Kind:   ErrStream,
		Status: 0,
		Detail: err.Error(),
	}
}

// Canceled reports whether err stems from an explicit cancellation rather
// than a genuine failure.
func Canceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
