package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error independently of transport.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
	KindUpstream   Kind = "upstream"
	KindInternal   Kind = "internal"
)

type Error struct {
	Kind    Kind
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		if e.Err != nil {
			return e.Message + ": " + e.Err.Error()
		}
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error whose kind is derived from the HTTP status.
func New(status int, code string, err error) *Error {
	return &Error{Kind: kindForStatus(status), Status: status, Code: code, Err: err}
}

func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Code: code, Message: message}
}

func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Code: code, Message: message}
}

func Forbidden(code, message string) *Error {
	return &Error{Kind: KindForbidden, Status: http.StatusForbidden, Code: code, Message: message}
}

// Upstream wraps a failure of a dependency. Status defaults to 502. Message is fixed
// per status and safe to return to callers; Error() appends the cause for logs.
func Upstream(status int, code string, err error) *Error {
	if status == 0 {
		status = http.StatusBadGateway
	}
	return &Error{Kind: KindUpstream, Status: status, Code: code, Message: upstreamMessage(status), Err: err}
}

func upstreamMessage(status int) string {
	switch status {
	case http.StatusServiceUnavailable:
		return "Upstream service unavailable"
	case http.StatusGatewayTimeout:
		return "Upstream service timed out"
	default:
		return "Upstream service request failed"
	}
}

func Internal(code string, err error) *Error {
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Code: code, Err: err}
}

// WithStatus overrides the status while keeping the kind (e.g. 413/429 validation).
func (e *Error) WithStatus(status int) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Status = status
	return &cp
}

func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}


func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusForbidden || status == http.StatusUnauthorized:
		return KindForbidden
	case status >= 400 && status < 500:
		return KindValidation
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout:
		return KindUpstream
	default:
		return KindInternal
	}
}
