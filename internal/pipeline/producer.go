package pipeline

import (
	"context"

	"github.com/Iron-Ham/ringplot/internal/errors"
	"github.com/Iron-Ham/ringplot/internal/logging"
	"github.com/Iron-Ham/ringplot/internal/ring"
	"github.com/Iron-Ham/ringplot/internal/source"
)

// Producer moves samples from a source into the ring buffer.
type Producer struct {
	buffer      *ring.Buffer[int32]
	source      source.Source
	restart     *RestartFlag
	stats       *Stats
	rewindOnEOF bool
	logger      *logging.Logger
}

// NewProducer builds a Producer. With rewindOnEOF set, running out of input
// rewinds the source instead of failing.
func NewProducer(buffer *ring.Buffer[int32], src source.Source, restart *RestartFlag, stats *Stats, rewindOnEOF bool, logger *logging.Logger) *Producer {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if stats == nil {
		stats = NewStats()
	}
	return &Producer{
		buffer:      buffer,
		source:      src,
		restart:     restart,
		stats:       stats,
		rewindOnEOF: rewindOnEOF,
		logger:      logger.WithComponent("producer"),
	}
}

// Run reads and pushes samples until ctx ends or the source fails. It returns
// nil when stopped by cancellation and the source error otherwise.
func (p *Producer) Run(ctx context.Context) error {
	// Guards against spinning on a source that is empty right after a rewind.
	readSinceRewind := true

	for {
		if ctx.Err() != nil {
			return nil
		}

		if p.restart.Take() {
			if err := p.source.ResetCursor(); err != nil {
				return p.fail(ctx, "restart failed", err)
			}
			p.stats.restarts.Add(1)
			readSinceRewind = true
			p.logger.Info("source restarted")
		}

		sample, err := p.source.ReadSample()
		if err != nil {
			switch {
			case errors.IsRetryable(err):
				p.stats.skipped.Add(1)
				logError(p.logger, "sample skipped", err)
				continue

			case errors.Is(err, errors.ErrSourceExhausted) && p.rewindOnEOF && readSinceRewind:
				if rerr := p.source.ResetCursor(); rerr != nil {
					return p.fail(ctx, "rewind failed", rerr)
				}
				p.stats.rewinds.Add(1)
				readSinceRewind = false
				p.logger.Debug("source rewound at end of input")
				continue

			case !errors.IsFatal(err):
				p.logger.Debug("source canceled", "error", err.Error())
				return nil

			default:
				return p.fail(ctx, "read failed", err)
			}
		}
		readSinceRewind = true

		if err := p.buffer.Push(ctx, sample); err != nil {
			if ctx.Err() != nil || errors.Is(err, errors.ErrBufferClosed) {
				return nil
			}
			return err
		}
		p.stats.pushed.Add(1)
	}
}

// fail logs and returns err unless the failure is a side effect of shutdown.
func (p *Producer) fail(ctx context.Context, msg string, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	logError(p.logger, msg, err)
	return err
}
