package protocol

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed protocol operation.
type Kind int

const (
	// KindParse means the operation text is not valid SPARQL
	KindParse Kind = iota
	// KindProtocol means the HTTP request itself is malformed
	KindProtocol
	// KindNotAcceptable means no response format satisfies the Accept header
	KindNotAcceptable
	// KindTimeout means the processor ran out of time
	KindTimeout
	// KindProcessing means the processor failed
	KindProcessing
)

var kindNames = map[Kind]string{
	KindParse:         "parse",
	KindProtocol:      "protocol",
	KindNotAcceptable: "not_acceptable",
	KindTimeout:       "timeout",
	KindProcessing:    "processing",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Status returns the HTTP status code reported for the kind.
func (k Kind) Status() int {
	switch k {
	case KindParse, KindProtocol:
		return http.StatusBadRequest
	case KindNotAcceptable:
		// Kept for compatibility with existing clients instead of 406.
		return http.StatusMethodNotAllowed
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Error is a protocol failure with the message sent to the client.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Errorf creates an Error of the given kind.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind with an underlying cause.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status code for the error.
func (e *Error) Status() int {
	return e.Kind.Status()
}

// KindOf returns the kind of err, or KindProcessing when err is not an *Error.
func KindOf(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindProcessing
}
