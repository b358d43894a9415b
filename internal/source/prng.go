package source

import (
	"math/rand/v2"
	"sync"

	"github.com/Iron-Ham/ringplot/internal/config"
	"github.com/Iron-Ham/ringplot/internal/errors"
)

// PRNGSource produces a deterministic sample stream from a seeded PCG
// generator. ResetCursor reseeds it, so the stream repeats from the start.
type PRNGSource struct {
	seed uint64

	mu     sync.Mutex
	pcg    *rand.PCG
	closed bool
}

// NewPRNG returns a PRNGSource seeded with seed.
func NewPRNG(seed uint64) *PRNGSource {
	return &PRNGSource{
		seed: seed,
		pcg:  rand.NewPCG(seed, seed),
	}
}

// ReadSample returns the low 32 bits of the next generator output.
func (s *PRNGSource) ReadSample() (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, errors.NewSourceError("read after close", errors.ErrSourceRead).WithKind(config.SourceKindPRNG)
	}
	return int32(uint32(s.pcg.Uint64())), nil
}

// ResetCursor reseeds the generator with the original seed.
func (s *PRNGSource) ResetCursor() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.NewSourceError("reset after close", errors.ErrSourceReset).WithKind(config.SourceKindPRNG)
	}
	s.pcg.Seed(s.seed, s.seed)
	return nil
}

// Close marks the source closed.
func (s *PRNGSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
