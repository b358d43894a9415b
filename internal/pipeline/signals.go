package pipeline

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// watchSignals routes SIGINT and SIGTERM to RequestShutdown and SIGHUP to
// RequestRestart. The returned function stops delivery.
func (c *Controller) watchSignals() (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, unix.SIGINT, unix.SIGTERM, unix.SIGHUP)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigCh:
				c.handleSignal(sig)
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

// handleSignal only sets flags; teardown happens in Run.
func (c *Controller) handleSignal(sig os.Signal) {
	c.logger.Info("signal received", "signal", sig.String())
	switch sig {
	case unix.SIGHUP:
		c.RequestRestart()
	default:
		c.RequestShutdown("signal: " + sig.String())
	}
}
