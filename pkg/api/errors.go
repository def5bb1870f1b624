package api

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError means the backend could not be reached or did not answer in
// time. Nothing happened server-side as far as the client can tell.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: backend unreachable: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// FormatError means the backend answered with something that is not the
// structured data expected, e.g. an HTML error page from a proxy.
type FormatError struct {
	Op          string
	StatusCode  int
	ContentType string
	Snippet     string
	Reason      string
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("%s: unexpected response (status %d", e.Op, e.StatusCode)
	if e.ContentType != "" {
		msg += ", content-type " + e.ContentType
	}
	msg += ")"
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Snippet != "" {
		msg += ". First bytes: " + e.Snippet
	}
	return msg
}

// ApplicationError is a structured failure reported by the backend.
type ApplicationError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ApplicationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (HTTP %d)", e.Op, e.Message, e.StatusCode)
}

// Duplicate reports a rejection of an already tracked keyword.
func (e *ApplicationError) Duplicate() bool { return e.StatusCode == http.StatusConflict }

// NotFound reports an unknown keyword id.
func (e *ApplicationError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func IsFormat(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

func IsApplication(err error) bool {
	var ae *ApplicationError
	return errors.As(err, &ae)
}

// IsDuplicate reports whether err is a duplicate-keyword rejection.
func IsDuplicate(err error) bool {
	var ae *ApplicationError
	return errors.As(err, &ae) && ae.Duplicate()
}

// IsNotFound reports whether err says the keyword does not exist on the
// backend.
func IsNotFound(err error) bool {
	var ae *ApplicationError
	return errors.As(err, &ae) && ae.NotFound()
}
