// Package errors provides centralized error definitions and error handling utilities
// for ringplot. It defines the pipeline's sentinel errors, typed errors carrying
// context about the failing component, and classification helpers the producer
// uses to decide between skipping a sample and stopping, and the pipeline uses
// to pick a log level.
//
// # Error Types
//
// Domain-specific errors represent failures of one pipeline component:
//   - AllocationError: ring buffer storage could not be obtained
//   - SourceError: the entropy-sample source failed to open, read, or rewind
//   - RenderError: the renderer failed to start, draw, or present
//
// Semantic errors represent common error conditions:
//   - ValidationError: invalid input or configuration
//   - TimeoutError: an operation did not finish within its deadline
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewSourceError("open failed", osErr).WithPath("/dev/urandom")
//	err := errors.NewAllocationError(capacity, errors.ErrCapacityTooSmall)
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrShortRead) { ... }
//
//	var srcErr *errors.SourceError
//	if errors.As(err, &srcErr) { ... }
//
//	if errors.IsRetryable(err) { ... }
//
// # Error Classification
//
// Errors are classified by severity and behavior:
//   - Retryable: transient conditions the producer skips (short reads)
//   - Fatal: everything else except cancellation, which stops a loop cleanly
//   - Severity: Debug, Info, Warning, Error, Critical
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that terminate the process.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Buffer-related sentinel errors
var (
	// ErrAllocation indicates that ring buffer storage could not be obtained.
	ErrAllocation = New("buffer allocation failed")
	// ErrCapacityTooSmall indicates a capacity with no usable slot.
	ErrCapacityTooSmall = New("capacity must be at least 2")
	// ErrCapacityTooLarge indicates a capacity beyond the supported maximum.
	ErrCapacityTooLarge = New("capacity exceeds maximum")
	// ErrBufferClosed indicates the buffer was destroyed while in use.
	ErrBufferClosed = New("buffer is closed")
)

// Source-related sentinel errors
var (
	// ErrSourceUnavailable indicates that the sample source could not be opened.
	ErrSourceUnavailable = New("sample source unavailable")
	// ErrSourceRead indicates an I/O failure while reading a sample.
	ErrSourceRead = New("sample source read failed")
	// ErrSourceExhausted indicates that the source has no more samples.
	ErrSourceExhausted = New("sample source exhausted")
	// ErrShortRead indicates that fewer bytes than one sample were read.
	ErrShortRead = New("short sample read")
	// ErrSourceReset indicates that the read cursor could not be rewound.
	ErrSourceReset = New("sample source reset failed")
)

// Render-related sentinel errors
var (
	// ErrRendererUnavailable indicates the renderer could not be started.
	ErrRendererUnavailable = New("renderer unavailable")
	// ErrRendererClosed indicates a draw or present after shutdown.
	ErrRendererClosed = New("renderer is closed")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrTaskPanic indicates that a pipeline task panicked.
	ErrTaskPanic = New("pipeline task panicked")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// PipelineError is the base interface for all ringplot errors.
type PipelineError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the condition is transient and the
	// operation may succeed when attempted again.
	IsRetryable() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// formatWithParts renders "prefix [k=v, ...]: message: cause".
func formatWithParts(prefix string, parts []string, message string, cause error) string {
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", prefix, strings.Join(parts, ", "))
	}
	if cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, message, cause)
	}
	return fmt.Sprintf("%s: %s", prefix, message)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// AllocationError reports that ring buffer storage could not be obtained.
// It is always fatal.
//
// Example:
//
//	err := errors.NewAllocationError(1, errors.ErrCapacityTooSmall)
//	fmt.Println(err) // "allocation error [capacity=1]: cannot allocate ring storage: capacity must be at least 2"
type AllocationError struct {
	baseError
	Capacity int
}

// NewAllocationError creates a new AllocationError for the requested capacity.
func NewAllocationError(capacity int, cause error) *AllocationError {
	return &AllocationError{
		baseError: baseError{
			message:   "cannot allocate ring storage",
			cause:     cause,
			severity:  SeverityCritical,
			retryable: false,
		},
		Capacity: capacity,
	}
}

// Error returns the formatted error message.
func (e *AllocationError) Error() string {
	parts := []string{fmt.Sprintf("capacity=%d", e.Capacity)}
	return formatWithParts("allocation error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *AllocationError) Is(target error) bool {
	if _, ok := target.(*AllocationError); ok {
		return true
	}
	if target == ErrAllocation {
		return true
	}
	return e.baseError.Is(target)
}

// SourceError represents a failure of the entropy-sample source.
//
// Example:
//
//	err := errors.NewSourceError("open failed", errors.ErrSourceUnavailable).WithPath("/dev/urandom")
type SourceError struct {
	baseError
	Path string
	Kind string
}

// NewSourceError creates a new SourceError. Short reads are marked retryable;
// every other source failure is fatal.
func NewSourceError(message string, cause error) *SourceError {
	retryable := errors.Is(cause, ErrShortRead)
	severity := SeverityCritical
	if retryable {
		severity = SeverityDebug
	}
	return &SourceError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			severity:  severity,
			retryable: retryable,
		},
	}
}

// WithPath adds the source path to the error context.
func (e *SourceError) WithPath(path string) *SourceError {
	e.Path = path
	return e
}

// WithKind adds the source kind to the error context.
func (e *SourceError) WithKind(kind string) *SourceError {
	e.Kind = kind
	return e
}

// Error returns the formatted error message.
func (e *SourceError) Error() string {
	var parts []string
	if e.Kind != "" {
		parts = append(parts, fmt.Sprintf("kind=%s", e.Kind))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	return formatWithParts("source error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *SourceError) Is(target error) bool {
	if _, ok := target.(*SourceError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// RenderError represents a failure of the rendering front-end.
type RenderError struct {
	baseError
	Mode string
}

// NewRenderError creates a new RenderError.
func NewRenderError(message string, cause error) *RenderError {
	return &RenderError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			severity:  SeverityCritical,
			retryable: false,
		},
	}
}

// WithMode adds the renderer mode to the error context.
func (e *RenderError) WithMode(mode string) *RenderError {
	e.Mode = mode
	return e
}

// Error returns the formatted error message.
func (e *RenderError) Error() string {
	var parts []string
	if e.Mode != "" {
		parts = append(parts, fmt.Sprintf("mode=%s", e.Mode))
	}
	return formatWithParts("render error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *RenderError) Is(target error) bool {
	if _, ok := target.(*RenderError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("must be positive").WithField("screen.width").WithValue(0)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:   message,
			severity:  SeverityWarning,
			retryable: false,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}
	return formatWithParts("validation error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("waiting for pipeline tasks", 2*time.Second)
//	fmt.Println(err) // "timeout error: waiting for pipeline tasks (timeout: 2s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:   operation,
			severity:  SeverityError,
			retryable: false,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that the caller may skip and attempt again.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var pipelineErr PipelineError
	if As(err, &pipelineErr) {
		return pipelineErr.IsRetryable()
	}

	return Is(err, ErrShortRead)
}

// IsFatal returns true if the error must terminate the process.
// Cancellation is never fatal; it is the normal way the loops stop.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if Is(err, ErrCanceled) {
		return false
	}
	return !IsRetryable(err)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement PipelineError.
//
// Example:
//
//	switch errors.GetSeverity(err) {
//	case errors.SeverityCritical:
//	    logger.Error("fatal", "error", err.Error())
//	case errors.SeverityDebug:
//	    logger.Debug("skipped", "error", err.Error())
//	}
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var pipelineErr PipelineError
	if As(err, &pipelineErr) {
		return pipelineErr.Severity()
	}

	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike a bare fmt.Errorf, it returns nil for a nil error.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to start renderer")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
