// Package errors provides structured error handling for portprowler operations.
// It defines error codes and typed errors that carry the target, field or
// file involved, so the CLI can decide what is fatal and what is skipped.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"
	CodeCanceled      ErrorCode = "CANCELED"

	// Target errors.
	CodeTargetInvalid      ErrorCode = "TARGET_INVALID"
	CodeTargetUnresolvable ErrorCode = "TARGET_UNRESOLVABLE"
	CodeTargetTooLarge     ErrorCode = "TARGET_TOO_LARGE"

	// Scanning errors.
	CodeScanFailed ErrorCode = "SCAN_FAILED"

	// Export errors.
	CodeExportFailed    ErrorCode = "EXPORT_FAILED"
	CodeFormatInvalid   ErrorCode = "FORMAT_INVALID"
	CodeDirectoryCreate ErrorCode = "DIRECTORY_CREATE"
)

// ScanError represents an error that aborted a scan of a single host.
type ScanError struct {
	Code    ErrorCode
	Message string
	Target  string
	Cause   error
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("[%s] %s (target: %s)", e.Code, e.Message, e.Target)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ScanError) Unwrap() error {
	return e.Cause
}

// WrapScanErrorWithTarget wraps an error with target information.
func WrapScanErrorWithTarget(code ErrorCode, message, target string, err error) *ScanError {
	return &ScanError{
		Code:    code,
		Message: message,
		Target:  target,
		Cause:   err,
	}
}

// TargetError reports a target string that could not be turned into addresses.
type TargetError struct {
	Code    ErrorCode
	Message string
	Target  string
	Cause   error
}

// Error implements the error interface.
func (e *TargetError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s (target: %s): %v", e.Code, e.Message, e.Target, e.Cause)
	}
	return fmt.Sprintf("[%s] %s (target: %s)", e.Code, e.Message, e.Target)
}

// Unwrap returns the underlying error.
func (e *TargetError) Unwrap() error {
	return e.Cause
}

// NewTargetError creates a target error.
func NewTargetError(code ErrorCode, message, target string, cause error) *TargetError {
	return &TargetError{
		Code:    code,
		Message: message,
		Target:  target,
		Cause:   cause,
	}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Value   interface{}
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(code ErrorCode, message, field string, value interface{}) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Field:   field,
		Value:   value,
	}
}

// WrapConfigError wraps an existing error as a configuration error.
func WrapConfigError(code ErrorCode, message string, err error) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// ExportError represents a failure to write results to a file.
type ExportError struct {
	Code   ErrorCode
	Path   string
	Format string
	Cause  error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] failed to write %s results to %s: %v", e.Code, e.Format, e.Path, e.Cause)
	}
	return fmt.Sprintf("[%s] failed to write %s results to %s", e.Code, e.Format, e.Path)
}

// Unwrap returns the underlying error.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// WrapExportError wraps a file or encoding failure.
func WrapExportError(code ErrorCode, path, format string, err error) *ExportError {
	return &ExportError{
		Code:   code,
		Path:   path,
		Format: format,
		Cause:  err,
	}
}

// Utility functions for common error operations

// GetCode extracts the error code from the first typed error in the chain.
func GetCode(err error) ErrorCode {
	var scanErr *ScanError
	if stderrors.As(err, &scanErr) {
		return scanErr.Code
	}
	var targetErr *TargetError
	if stderrors.As(err, &targetErr) {
		return targetErr.Code
	}
	var configErr *ConfigError
	if stderrors.As(err, &configErr) {
		return configErr.Code
	}
	var exportErr *ExportError
	if stderrors.As(err, &exportErr) {
		return exportErr.Code
	}
	return CodeUnknown
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && GetCode(err) == code
}

// IsSkippable reports whether the error only affects one target and the run
// should continue with the remaining ones.
func IsSkippable(err error) bool {
	switch GetCode(err) {
	case CodeTargetInvalid, CodeTargetUnresolvable, CodeTargetTooLarge:
		return true
	default:
		return false
	}
}

// IsFatal determines if an error indicates a condition that should stop execution.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case CodeConfiguration, CodeValidation, CodeCanceled:
		return true
	default:
		return false
	}
}

// Common error creation functions

// ErrUnresolvable creates an error for a hostname that did not resolve.
func ErrUnresolvable(target string, cause error) *TargetError {
	return NewTargetError(CodeTargetUnresolvable, "Hostname could not be resolved", target, cause)
}
