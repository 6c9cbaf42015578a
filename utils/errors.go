package utils

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigurationError reports an unsupported or incomplete configuration, such as a dataset
// without a split file or a removed option variant.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid configuration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid configuration for %q: %s", e.Field, e.Reason)
}

// NewConfigurationError is used when a configuration cannot be honored.
func NewConfigurationError(field, reasonFormat string, args ...interface{}) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(reasonFormat, args...)}
}

// IsConfigurationError returns whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// FormatError reports malformed input, e.g. a manifest line without frame names.
type FormatError struct {
	Source string
	Line   int
	Reason string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed input %s:%d: %s", e.Source, e.Line, e.Reason)
	}
	return fmt.Sprintf("malformed input %s: %s", e.Source, e.Reason)
}

// NewFormatError is used when input content does not follow its expected format.
func NewFormatError(source string, line int, reasonFormat string, args ...interface{}) error {
	return &FormatError{Source: source, Line: line, Reason: fmt.Sprintf(reasonFormat, args...)}
}

// IsFormatError returns whether err is or wraps a FormatError.
func IsFormatError(err error) bool {
	var target *FormatError
	return errors.As(err, &target)
}

// IOError reports a path that could not be read or decoded.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("cannot read %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError wraps err as a read failure for path. A nil err yields nil.
func NewIOError(path string, err error) error {
	if err == nil {
		return nil
	}
	var already *IOError
	if errors.As(err, &already) && already.Path == path {
		return err
	}
	return &IOError{Path: path, Err: err}
}

// IsIOError returns whether err is or wraps an IOError.
func IsIOError(err error) bool {
	var target *IOError
	return errors.As(err, &target)
}

// NewUnexpectedTypeError is used when there is a type mismatch.
func NewUnexpectedTypeError[ExpectedT any](actual interface{}) error {
	return errors.Errorf("expected %T but got %T", *new(ExpectedT), actual)
}
