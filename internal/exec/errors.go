package exec

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while running a chain over data.
//
// Runtime errors include:
//   - Empty input for a terminal that needs an element (first, single, min)
//   - A second match for single or single_or_default
//   - A repeated key for to_map
//   - A function name the registry does not know
//   - A key selector returning a value of the wrong key type, or unable to
//     key an element at all
//   - A fold or numeric terminal meeting a non-numeric element
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Fn names the function involved, if any.
	Fn string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeNoElements indicates a terminal that needs at least one element saw none.
	ErrCodeNoElements RuntimeErrorCode = "NO_ELEMENTS"

	// ErrCodeMultipleElements indicates single saw more than one match.
	ErrCodeMultipleElements RuntimeErrorCode = "MULTIPLE_ELEMENTS"

	// ErrCodeDuplicateKey indicates to_map produced the same key twice.
	ErrCodeDuplicateKey RuntimeErrorCode = "DUPLICATE_KEY"

	// ErrCodeUnknownFunction indicates a function name missing from the registry.
	ErrCodeUnknownFunction RuntimeErrorCode = "UNKNOWN_FUNCTION"

	// ErrCodeKeyType indicates a key that does not match the declared key type.
	ErrCodeKeyType RuntimeErrorCode = "KEY_TYPE"

	// ErrCodeInvalidCast indicates type_cast met an element of another type.
	ErrCodeInvalidCast RuntimeErrorCode = "INVALID_CAST"

	// ErrCodeNotNumeric indicates sum, average or a fold met a non-numeric value.
	ErrCodeNotNumeric RuntimeErrorCode = "NOT_NUMERIC"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Fn != "" {
		return fmt.Sprintf("%s: %s (fn=%s)", e.Code, e.Message, e.Fn)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorCode returns the RuntimeErrorCode carried by err, or "" if err does
// not wrap a *RuntimeError.
func ErrorCode(err error) RuntimeErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsNoElements reports whether err is an empty-input terminal error.
func IsNoElements(err error) bool {
	return ErrorCode(err) == ErrCodeNoElements
}

func errNoElements() *RuntimeError {
	return &RuntimeError{Code: ErrCodeNoElements, Message: "sequence contains no matching element"}
}

func errMultipleElements() *RuntimeError {
	return &RuntimeError{Code: ErrCodeMultipleElements, Message: "sequence contains more than one matching element"}
}

func errUnknownFunction(kind, name string) *RuntimeError {
	return &RuntimeError{Code: ErrCodeUnknownFunction, Message: fmt.Sprintf("unknown %s", kind), Fn: name}
}
