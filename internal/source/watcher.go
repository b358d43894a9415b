package source

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Iron-Ham/ringplot/internal/logging"
)

// DefaultDebounce is how long the watcher waits for a burst of events to
// settle before reporting a change.
const DefaultDebounce = 50 * time.Millisecond

// Watcher reports writes to a source file so the producer can be restarted
// from the beginning of the new contents.
//
// The parent directory is watched rather than the file itself, so editors
// that save by replacing the file are still noticed.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func()
	debounce time.Duration
	logger   *logging.Logger

	stopCh    chan struct{}
	doneCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewWatcher watches path and calls onChange, at most once per debounce
// window, after the file is written or recreated.
func NewWatcher(path string, onChange func(), logger *logging.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		_ = fw.Close()
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, err
	}

	if logger == nil {
		logger = logging.NopLogger()
	}

	return &Watcher{
		watcher:  fw,
		path:     abs,
		onChange: onChange,
		debounce: DefaultDebounce,
		logger:   logger.WithComponent("watcher"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins delivering change notifications. Later calls have no effect.
func (w *Watcher) Start() {
	w.startOnce.Do(func() {
		go w.watchLoop()
	})
}

// Stop stops the watcher. It is safe to call more than once, and before Start.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
	})
}

// Done is closed once the event loop has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

func (w *Watcher) watchLoop() {
	defer close(w.doneCh)

	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C // drain initial timer
	defer debounceTimer.Stop()

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			debounceTimer.Reset(w.debounce)

		case <-debounceTimer.C:
			w.logger.Info("source file changed", "path", w.path)
			if w.onChange != nil {
				w.onChange()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "path", w.path, "error", err.Error())
		}
	}
}
