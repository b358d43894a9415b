package pipeline

import "sync"

// RestartFlag records that the producer should rewind its source. Requests
// made before the producer next checks the flag collapse into one rewind.
type RestartFlag struct {
	mu  sync.Mutex
	set bool
}

// Request sets the flag. It is safe to call from any goroutine.
func (f *RestartFlag) Request() {
	f.mu.Lock()
	f.set = true
	f.mu.Unlock()
}

// Take reports whether the flag was set and clears it.
func (f *RestartFlag) Take() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	was := f.set
	f.set = false
	return was
}
