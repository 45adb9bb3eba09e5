// Package errors defines the coded error type returned across constref.
package errors

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

type ErrorCode string

const (
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeConflict        ErrorCode = "CONFLICT"
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
	CodeNotSupported    ErrorCode = "NOT_SUPPORTED"
)

// Context keys used by AddContext.
const (
	CtxPath      = "path"
	CtxOperation = "operation"
	CtxConstant  = "constant"
	CtxSection   = "section"
)

// Field is one key/value pair of error context.
type Field struct {
	Key   string
	Value any
}

// DomainError carries a code, a message, an optional cause and context
// fields. Fields render sorted by key; setting a key twice keeps the last
// value.
type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Fields  []Field
}

func (e *DomainError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Fields) == 0 {
		return b.String()
	}
	fields := slices.Clone(e.Fields)
	slices.SortFunc(fields, func(a, b Field) int { return strings.Compare(a.Key, b.Key) })
	b.WriteString(" (")
	for i, f := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", f.Key, f.Value)
	}
	b.WriteString(")")
	return b.String()
}

func (e *DomainError) Unwrap() error { return e.Err }

// Value returns the context value stored under key.
func (e *DomainError) Value(key string) (any, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

func (e *DomainError) set(key string, value any) {
	for i := range e.Fields {
		if e.Fields[i].Key == key {
			e.Fields[i].Value = value
			return
		}
	}
	e.Fields = append(e.Fields, Field{Key: key, Value: value})
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Newf(code ErrorCode, format string, args ...any) error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// AddContext sets key on the nearest DomainError in err's chain. A plain
// error is wrapped as CodeInternal first.
func AddContext(err error, key string, value any) error {
	de, ok := asDomain(err)
	if !ok {
		de = &DomainError{Code: CodeInternal, Message: "wrapped error", Err: err}
		err = de
	}
	de.set(key, value)
	return err
}

// IsCode reports whether the nearest DomainError in err's chain has code.
func IsCode(err error, code ErrorCode) bool {
	de, ok := asDomain(err)
	return ok && de.Code == code
}

// CodeOf returns the code of the nearest DomainError, or CodeInternal.
func CodeOf(err error) ErrorCode {
	if de, ok := asDomain(err); ok {
		return de.Code
	}
	return CodeInternal
}

func asDomain(err error) (*DomainError, bool) {
	var de *DomainError
	ok := errors.As(err, &de)
	return de, ok
}
