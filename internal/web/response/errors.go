package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/conduit-lang/sparqld/internal/protocol"
)

// HTTPError is an error with the status code it is reported with.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates an HTTPError.
func NewHTTPError(status int, format string, args ...interface{}) *HTTPError {
	return &HTTPError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// RenderError writes message as a plain text body with the given status.
func RenderError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	fmt.Fprint(w, message)
}

// RenderErr writes err with the status implied by its type: protocol errors
// and HTTPErrors carry their own, anything else is a 500.
func RenderErr(w http.ResponseWriter, err error) {
	var perr *protocol.Error
	if errors.As(err, &perr) {
		RenderError(w, perr.Status(), perr.Message)
		return
	}
	var herr *HTTPError
	if errors.As(err, &herr) {
		RenderError(w, herr.Status, herr.Message)
		return
	}
	RenderInternalError(w, err)
}

// RenderBadRequest renders a 400 Bad Request error
func RenderBadRequest(w http.ResponseWriter, message string) {
	RenderError(w, http.StatusBadRequest, message)
}

// RenderNotFound renders a 404 Not Found error
func RenderNotFound(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RenderError(w, http.StatusNotFound, message)
}

// RenderMethodNotAllowed renders a 405 Method Not Allowed error
func RenderMethodNotAllowed(w http.ResponseWriter, allowedMethods []string) {
	if len(allowedMethods) > 0 {
		w.Header().Set("Allow", strings.Join(allowedMethods, ", "))
	}
	RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// RenderInternalError renders a 500 Internal Server Error
func RenderInternalError(w http.ResponseWriter, err error) {
	message := "Internal server error"
	if err != nil {
		message = err.Error()
	}
	RenderError(w, http.StatusInternalServerError, message)
}
