package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sort"
)

// Code is a stable error code for programmatic handling.
type Code string

const (
	CodeInvalid      Code = "invalid"
	CodeConflict     Code = "conflict"
	CodeNotFound     Code = "not_found"
	CodeUnauthorized Code = "unauthorized"
	CodeUnavailable  Code = "unavailable"
	CodeInternal     Code = "internal"
)

// AppError carries a code, a client-facing message and optional field-level details.
type AppError struct {
	Code    Code
	Message string
	Err     error
	Fields  map[string]string
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *AppError) Unwrap() error { return e.Err }

// WithField attaches a field-level message.
func (e *AppError) WithField(field, message string) *AppError {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = message
	return e
}

func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(err error, code Code, message string) *AppError {
	if err == nil {
		return New(code, message)
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// Validation builds an invalid-input error from collected field messages.
func Validation(fields map[string]string) *AppError {
	return &AppError{Code: CodeInvalid, Message: summarize(fields), Fields: fields}
}

// IsCode checks if an error has the provided code (through unwrapping).
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf returns the code of the first AppError in the chain, or CodeInternal.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// HTTPStatus maps an error code to its response status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalid, CodeConflict:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// summarize joins field messages in a stable order so responses are deterministic.
func summarize(fields map[string]string) string {
	if len(fields) == 0 {
		return "Validation failed"
	}
	msg := ""
	for _, k := range FieldOrder {
		if v, ok := fields[k]; ok {
			if msg != "" {
				msg += "; "
			}
			msg += v
		}
	}
	var extra []string
	for k := range fields {
		if !slices.Contains(FieldOrder, k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		if msg != "" {
			msg += "; "
		}
		msg += fields[k]
	}
	return msg
}

// FieldOrder is the order field messages appear in a summarized validation message.
var FieldOrder = []string{
	"fullName", "email", "phone", "qualification", "passingYear", "service", "course", "message",
}
