// Package source provides the entropy samples fed to the producer.
//
// A Source yields one int32 per ReadSample call. Sources are used by a single
// producer goroutine; Close may be called from another goroutine during
// teardown and causes later reads to fail.
package source

import (
	"fmt"

	"github.com/Iron-Ham/ringplot/internal/config"
	"github.com/Iron-Ham/ringplot/internal/errors"
)

// SampleSize is the number of bytes consumed per sample.
const SampleSize = 4

// Source is the producer's view of a sample generator.
type Source interface {
	// ReadSample returns the next sample. A partial sample is reported as a
	// retryable error wrapping errors.ErrShortRead; end of input wraps
	// errors.ErrSourceExhausted.
	ReadSample() (int32, error)
	// ResetCursor rewinds the source so the next read starts from the
	// beginning of its stream.
	ResetCursor() error
	// Close releases the underlying resource.
	Close() error
}

// Open builds the Source selected by cfg.Kind.
func Open(cfg config.SourceConfig) (Source, error) {
	switch cfg.Kind {
	case config.SourceKindFile:
		return OpenFile(cfg.ResolvePath())
	case config.SourceKindPRNG:
		return NewPRNG(cfg.Seed), nil
	default:
		return nil, errors.NewValidationError(fmt.Sprintf("unknown source kind %q", cfg.Kind)).
			WithField("source.kind").
			WithValue(cfg.Kind)
	}
}
