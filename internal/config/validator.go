package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "screen.block_width")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// MaxBufferCapacity is the largest accepted buffer.capacity.
// Must match ring.MaxCapacity (defined separately to keep config a leaf package).
const MaxBufferCapacity = 1 << 26

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidSourceKinds returns the list of valid source.kind values
func ValidSourceKinds() []string {
	return []string{SourceKindFile, SourceKindPRNG}
}

// ValidRenderModes returns the list of valid render.mode values
func ValidRenderModes() []string {
	return []string{RenderModeAuto, RenderModeTerminal, RenderModeHeadless}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateBuffer()...)
	errors = append(errors, c.validateScreen()...)
	errors = append(errors, c.validateSource()...)
	errors = append(errors, c.validateRender()...)
	errors = append(errors, c.validateShutdown()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateBuffer() []ValidationError {
	var errors []ValidationError

	// One slot stays empty, so two is the smallest useful ring
	if c.Buffer.Capacity < 2 {
		errors = append(errors, ValidationError{
			Field:   "buffer.capacity",
			Value:   c.Buffer.Capacity,
			Message: "must be at least 2",
		})
	}
	if c.Buffer.Capacity > MaxBufferCapacity {
		errors = append(errors, ValidationError{
			Field:   "buffer.capacity",
			Value:   c.Buffer.Capacity,
			Message: fmt.Sprintf("exceeds maximum of %d", MaxBufferCapacity),
		})
	}

	return errors
}

func (c *Config) validateScreen() []ValidationError {
	var errors []ValidationError

	positive := []struct {
		field string
		value int
	}{
		{"screen.width", c.Screen.Width},
		{"screen.height", c.Screen.Height},
		{"screen.block_width", c.Screen.BlockWidth},
		{"screen.block_height", c.Screen.BlockHeight},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errors = append(errors, ValidationError{
				Field:   p.field,
				Value:   p.value,
				Message: "must be positive",
			})
		}
	}
	if len(errors) > 0 {
		return errors
	}

	// At least one block has to fit on a row, otherwise every position maps to column 0 of nothing
	if c.Screen.BlockWidth > c.Screen.Width {
		errors = append(errors, ValidationError{
			Field:   "screen.block_width",
			Value:   c.Screen.BlockWidth,
			Message: fmt.Sprintf("must not exceed screen.width (%d)", c.Screen.Width),
		})
	}
	if c.Screen.BlockHeight > c.Screen.Height {
		errors = append(errors, ValidationError{
			Field:   "screen.block_height",
			Value:   c.Screen.BlockHeight,
			Message: fmt.Sprintf("must not exceed screen.height (%d)", c.Screen.Height),
		})
	}

	return errors
}

func (c *Config) validateSource() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidSourceKinds(), c.Source.Kind) {
		errors = append(errors, ValidationError{
			Field:   "source.kind",
			Value:   c.Source.Kind,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidSourceKinds(), ", ")),
		})
	}

	if c.Source.Kind == SourceKindFile && strings.TrimSpace(c.Source.Path) == "" {
		errors = append(errors, ValidationError{
			Field:   "source.path",
			Value:   c.Source.Path,
			Message: "is required when source.kind is file",
		})
	}

	if c.Source.Watch && c.Source.Kind != SourceKindFile {
		errors = append(errors, ValidationError{
			Field:   "source.watch",
			Value:   c.Source.Watch,
			Message: "only applies to the file source",
		})
	}

	return errors
}

func (c *Config) validateRender() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidRenderModes(), c.Render.Mode) {
		errors = append(errors, ValidationError{
			Field:   "render.mode",
			Value:   c.Render.Mode,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidRenderModes(), ", ")),
		})
	}

	const maxFrameIntervalMs = 10000
	if c.Render.FrameIntervalMs < 1 {
		errors = append(errors, ValidationError{
			Field:   "render.frame_interval_ms",
			Value:   c.Render.FrameIntervalMs,
			Message: "must be at least 1",
		})
	} else if c.Render.FrameIntervalMs > maxFrameIntervalMs {
		errors = append(errors, ValidationError{
			Field:   "render.frame_interval_ms",
			Value:   c.Render.FrameIntervalMs,
			Message: fmt.Sprintf("exceeds maximum of %d", maxFrameIntervalMs),
		})
	}

	if c.Render.DrainPerFrame < 0 {
		errors = append(errors, ValidationError{
			Field:   "render.drain_per_frame",
			Value:   c.Render.DrainPerFrame,
			Message: "must be non-negative",
		})
	}

	if c.Render.MaxFrames < 0 {
		errors = append(errors, ValidationError{
			Field:   "render.max_frames",
			Value:   c.Render.MaxFrames,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateShutdown() []ValidationError {
	var errors []ValidationError

	if c.Shutdown.TimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "shutdown.timeout_ms",
			Value:   c.Shutdown.TimeoutMs,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
