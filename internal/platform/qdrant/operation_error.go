package qdrant

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type OperationErrorCode string

const (
	OperationErrorValidation      OperationErrorCode = "validation_failed"
	OperationErrorEncodeFailed    OperationErrorCode = "encode_failed"
	OperationErrorDecodeFailed    OperationErrorCode = "decode_failed"
	OperationErrorTransportFailed OperationErrorCode = "transport_failed"
	OperationErrorTimeout         OperationErrorCode = "timeout"
	OperationErrorQueryFailed     OperationErrorCode = "query_failed"
)

// OperationError describes a failed call against the chunk collection.
type OperationError struct {
	Code       OperationErrorCode
	Operation  string
	Collection string
	StatusCode int
	Message    string
	Cause      error
}

func (e *OperationError) Error() string {
	if e == nil {
		return "qdrant operation failed"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "qdrant %s failed (code=%s", e.Operation, e.Code)
	if e.Collection != "" {
		fmt.Fprintf(&b, " collection=%s", e.Collection)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " status=%d", e.StatusCode)
	}
	b.WriteString(")")
	switch {
	case e.Message != "":
		b.WriteString(": " + e.Message)
	case e.Cause != nil:
		b.WriteString(": " + e.Cause.Error())
	}
	return b.String()
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsNotFound reports a 404 from the server, e.g. a missing collection.
func IsNotFound(err error) bool {
	var typed *OperationError
	return errors.As(err, &typed) && typed.StatusCode == http.StatusNotFound
}

func opErr(op string, code OperationErrorCode, msg string, cause error) error {
	return &OperationError{
		Code:      code,
		Operation: op,
		Message:   msg,
		Cause:     cause,
	}
}

// withCollection stamps the collection name onto an OperationError.
func withCollection(err error, collection string) error {
	var typed *OperationError
	if errors.As(err, &typed) && typed.Collection == "" {
		typed.Collection = collection
	}
	return err
}
