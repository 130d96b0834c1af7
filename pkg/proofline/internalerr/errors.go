package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicate        = errors.New("duplicate entry")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrUnsupportedRule  = errors.New("unsupported rule")
	ErrCatalogLoad      = errors.New("catalog load failed")
)

// Code identifies an error category in a stable, testable way.
type Code string

const (
	CodeUnknown         Code = "UNKNOWN"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConfigLoad      Code = "CONFIG_LOAD"
	CodeConfigParse     Code = "CONFIG_PARSE"
	CodeCatalogLoad     Code = "CATALOG_LOAD"
	CodeCatalogParse    Code = "CATALOG_PARSE"
	CodeRuleUnsupported Code = "RULE_UNSUPPORTED"
	CodeRuleInvalid     Code = "RULE_INVALID"
	CodeStore           Code = "STORE"
	CodeLanguage        Code = "LANGUAGE"
)

// sentinelFor maps a code to the sentinel it should satisfy under errors.Is.
var sentinelFor = map[Code]error{
	CodeInvalidInput:    ErrInvalidInput,
	CodeNotFound:        ErrNotFound,
	CodeConfigLoad:      ErrInvalidConfig,
	CodeConfigParse:     ErrInvalidConfig,
	CodeCatalogLoad:     ErrCatalogLoad,
	CodeCatalogParse:    ErrCatalogLoad,
	CodeRuleUnsupported: ErrUnsupportedRule,
	CodeRuleInvalid:     ErrUnsupportedRule,
	CodeStore:           ErrStoreUnavailable,
	CodeLanguage:        ErrNotFound,
}

// Error is a structured error carrying a code and optional details.
type Error struct {
	Code    Code
	Message string
	Details map[string]interface{}
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is matches another *Error with the same code, or the sentinel of the code.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	if s, ok := sentinelFor[e.Code]; ok {
		return s == target
	}
	return false
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err. It returns nil when err is nil.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Wrapped: err}
}

// Wrapf wraps err with a formatted message. It returns nil when err is nil.
func Wrapf(err error, code Code, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Wrapped: err}
}

// WithDetail attaches a key/value detail and returns the error for chaining.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
