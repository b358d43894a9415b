package source

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/Iron-Ham/ringplot/internal/config"
	"github.com/Iron-Ham/ringplot/internal/errors"
)

// FileSource reads native-endian 32-bit samples from a file or device such as
// /dev/urandom.
//
// Reads run without holding mu so that Close can interrupt a blocked read.
type FileSource struct {
	path string
	buf  [SampleSize]byte // producer-owned

	mu   sync.Mutex
	file *os.File
}

// OpenFile opens path for reading. Failure to open is reported as a fatal
// SourceError wrapping errors.ErrSourceUnavailable.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewSourceError("open failed", fmt.Errorf("%w: %w", errors.ErrSourceUnavailable, err)).
			WithKind(config.SourceKindFile).
			WithPath(path)
	}
	return &FileSource{path: path, file: f}, nil
}

// Path returns the path the source was opened from.
func (s *FileSource) Path() string {
	return s.path
}

func (s *FileSource) sourceError(message string, cause error) *errors.SourceError {
	return errors.NewSourceError(message, cause).
		WithKind(config.SourceKindFile).
		WithPath(s.path)
}

func (s *FileSource) current() *os.File {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file
}

// ReadSample reads the next SampleSize bytes.
func (s *FileSource) ReadSample() (int32, error) {
	f := s.current()
	if f == nil {
		return 0, s.sourceError("read after close", errors.ErrSourceRead)
	}

	n, err := io.ReadFull(f, s.buf[:])
	switch {
	case err == nil:
		return int32(binary.NativeEndian.Uint32(s.buf[:])), nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		return 0, s.sourceError(fmt.Sprintf("read %d of %d bytes", n, SampleSize), errors.ErrShortRead)
	case errors.Is(err, io.EOF):
		return 0, s.sourceError("end of input", errors.ErrSourceExhausted)
	default:
		return 0, s.sourceError("read failed", fmt.Errorf("%w: %w", errors.ErrSourceRead, err))
	}
}

// ResetCursor reopens path so the next read starts at the beginning of
// whatever file is there now. A save that replaces the file by rename leaves
// the old descriptor on the unlinked contents. When the path cannot be
// reopened the current file is rewound instead.
func (s *FileSource) ResetCursor() error {
	if s.current() == nil {
		return s.sourceError("reset after close", errors.ErrSourceReset)
	}

	f, err := os.Open(s.path)
	if err != nil {
		return s.rewind()
	}

	s.mu.Lock()
	old := s.file
	if old == nil {
		s.mu.Unlock()
		_ = f.Close()
		return s.sourceError("reset after close", errors.ErrSourceReset)
	}
	s.file = f
	s.mu.Unlock()

	_ = old.Close()
	return nil
}

func (s *FileSource) rewind() error {
	f := s.current()
	if f == nil {
		return s.sourceError("reset after close", errors.ErrSourceReset)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return s.sourceError("seek to start failed", fmt.Errorf("%w: %w", errors.ErrSourceReset, err))
	}
	return nil
}

// Close closes the file. It is safe to call more than once.
func (s *FileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
