// # Log Files
//
// When a log directory is configured, records go to ringplot.log inside it.
// [NewLoggerWithRotation] wraps the file in a [RotatingWriter], which renames
// it to ringplot.log.1 once it would pass the configured size and shifts older
// backups up to MaxBackups, optionally gzipping them in the background.
//
// # Context
//
// Pipeline components log through children of a single root logger:
//
//	root, err := logging.NewLoggerWithRotation(dir, "INFO", logging.DefaultRotationConfig())
//	if err != nil {
//	    return err
//	}
//	defer root.Close()
//
//	log := root.WithRun(runID).WithComponent("producer")
//	log.Debug("short read skipped", "bytes", n)
//
// Children share the parent's destination, so closing any logger in the tree
// closes the file for all of them.
//
// # Thread Safety
//
// [Logger] and [RotatingWriter] are safe for concurrent use.
package logging
