package pipeline

import (
	"github.com/Iron-Ham/ringplot/internal/errors"
	"github.com/Iron-Ham/ringplot/internal/logging"
)

// logError logs err at the level matching its severity.
func logError(logger *logging.Logger, msg string, err error, args ...any) {
	args = append(args, "error", err.Error(), "severity", errors.GetSeverity(err).String())
	switch errors.GetSeverity(err) {
	case errors.SeverityDebug, errors.SeverityInfo:
		logger.Debug(msg, args...)
	case errors.SeverityWarning:
		logger.Warn(msg, args...)
	default:
		logger.Error(msg, args...)
	}
}
