// Package errors carries the API's typed errors. Each one knows the HTTP status
// and machine-readable code it renders as in the response envelope.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error is a domain failure with an HTTP mapping. Fields is only set for
// validation failures and names each rejected input with the rule it broke.
type Error struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Status  int               `json:"status"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.Err == nil:
		return e.Message
	default:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New declares an error kind.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap reports cause under the given code and status.
func Wrap(cause error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: cause}
}

var (
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrEmailRegistered    = New("EMAIL_REGISTERED", http.StatusConflict, "email already registered")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// ErrWorkflowFailed is returned once a multi-step workflow has rolled back.
	ErrWorkflowFailed = New("WORKFLOW_FAILED", http.StatusInternalServerError, "workflow failed")
	// ErrCacheMiss never reaches a client; cache readers use it to fall through to the database.
	ErrCacheMiss = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Invalid reports a rejected payload. Struct-tag failures from
// go-playground/validator are listed per field.
func Invalid(cause error, message string) *Error {
	out := Wrap(cause, ErrValidation.Code, ErrValidation.Status, message)
	var rules validator.ValidationErrors
	if errors.As(cause, &rules) && len(rules) > 0 {
		out.Fields = make(map[string]string, len(rules))
		for _, fe := range rules {
			rule := fe.Tag()
			if fe.Param() != "" {
				rule += "=" + fe.Param()
			}
			out.Fields[fieldName(fe.Field())] = rule
		}
	}
	return out
}

func fieldName(goName string) string {
	var b strings.Builder
	lower := false
	for _, r := range goName {
		if r >= 'A' && r <= 'Z' {
			if lower {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
			lower = false
		} else {
			lower = true
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Is matches on the error code anywhere in err's chain.
func Is(err error, target *Error) bool {
	var e *Error
	if target == nil || !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code
}

// FromError returns the typed error in err's chain, or an internal error
// wrapping err when there is none.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone copies kind, replacing the message when one is given.
func Clone(kind *Error, message string) *Error {
	if kind == nil {
		return nil
	}
	out := *kind
	if message != "" {
		out.Message = message
	}
	return &out
}
