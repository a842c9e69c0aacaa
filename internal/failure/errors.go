// Package failure types workflow and fetch failures into the closed error
// taxonomy and records them.
package failure

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	goerrors "github.com/go-errors/errors"

	"github.com/JakeFAU/jobswipe/internal/jobs"
)

// Error is a classified failure. Stack is for logs only and never leaves the
// process.
type Error struct {
	Type    jobs.ErrorType
	Field   string
	Message string
	Err     error
	Stack   []byte
}

func (e *Error) Error() string {
	prefix := string(e.Type)
	if e.Field != "" {
		prefix += "(" + e.Field + ")"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StackTrace returns the stack captured at construction.
func (e *Error) StackTrace() []byte {
	return e.Stack
}

// New builds a typed failure. Unknown types collapse to jobs.ErrorUnknown.
func New(errType jobs.ErrorType, field, message string, err error) *Error {
	if !errType.Valid() {
		errType = jobs.ErrorUnknown
	}
	var stack []byte
	if err != nil {
		var stackErr *goerrors.Error
		if errors.As(err, &stackErr) {
			stack = stackErr.Stack()
		} else {
			stack = goerrors.Wrap(err, 2).Stack()
		}
	} else {
		stack = goerrors.New(message).Stack()
	}
	return &Error{
		Type:    errType,
		Field:   field,
		Message: message,
		Err:     err,
		Stack:   stack,
	}
}

// ElementMissing reports a required form element that no lookup found.
func ElementMissing(field string) *Error {
	return New(jobs.ErrorElementMissing, field, "required element not found", nil)
}

// UploadFailed reports a failed résumé attach.
func UploadFailed(field string, err error) *Error {
	return New(jobs.ErrorUploadFailed, field, "resume upload failed", err)
}

// CredentialsMissing reports a login wall with no stored credentials.
func CredentialsMissing(portal jobs.PortalKind) *Error {
	return New(jobs.ErrorCredentialsMissing, "", fmt.Sprintf("%s login required but no credentials on file", portal), nil)
}

// SubmissionUnconfirmed reports a submit with no success marker in time.
func SubmissionUnconfirmed(err error) *Error {
	return New(jobs.ErrorSubmissionUnconfirmed, "", "no submission confirmation before timeout", err)
}

// Blocked reports a portal or source that refused the request.
func Blocked(message string, err error) *Error {
	return New(jobs.ErrorBlocked, "", message, err)
}

// Transient reports a network failure that exhausted its retries.
func Transient(message string, err error) *Error {
	return New(jobs.ErrorTransientNetwork, "", message, err)
}

// Classify maps any error into the taxonomy. nil classifies as unknown.
func Classify(err error) jobs.ErrorType {
	if err == nil {
		return jobs.ErrorUnknown
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Type
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return jobs.ErrorTransientNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return jobs.ErrorTransientNetwork
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "net::err_"), strings.Contains(msg, "connection refused"), strings.Contains(msg, "connection reset"):
		return jobs.ErrorTransientNetwork
	case strings.Contains(msg, "could not find node"), strings.Contains(msg, "no such element"):
		return jobs.ErrorElementMissing
	case strings.Contains(msg, "upload"):
		return jobs.ErrorUploadFailed
	default:
		return jobs.ErrorUnknown
	}
}

// FieldOf returns the implicated field name, if err carries one.
func FieldOf(err error) string {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Field
	}
	return ""
}

// FromFetch converts a non-success fetch result into a typed failure. It
// returns nil for successes.
func FromFetch(res jobs.FetchResult) *Error {
	switch res.Outcome {
	case jobs.FetchSuccess:
		return nil
	case jobs.FetchBlocked:
		return Blocked(fmt.Sprintf("status %d from %s", res.StatusCode, res.URL), res.Err)
	case jobs.FetchTransient:
		return Transient(fmt.Sprintf("gave up on %s after %d attempts", res.URL, res.Attempts), res.Err)
	default:
		return New(jobs.ErrorUnknown, "", fmt.Sprintf("fetch %s failed with status %d", res.URL, res.StatusCode), res.Err)
	}
}
