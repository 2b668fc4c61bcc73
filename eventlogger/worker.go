package eventlogger

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type Worker struct {
	eventCh chan Event
	logger  EventLogger
	log     *zap.Logger
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewWorker(logger EventLogger, bufferSize int, log *zap.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		eventCh: make(chan Event, bufferSize),
		logger:  logger,
		log:     log.Named("eventlogger"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (w *Worker) Start() {
	w.wg.Go(func() {
		for {
			select {
			case <-w.ctx.Done():
				w.log.Info("draining events before shutdown", zap.Int("remaining_events", len(w.eventCh)))
				for len(w.eventCh) > 0 {
					event := <-w.eventCh
					if err := w.logger.Save(context.Background(), event); err != nil {
						w.log.Error("failed to save event during shutdown", zap.Error(err), zap.String("event_type", event.Type))
					}
				}
				return
			case event := <-w.eventCh:
				if err := w.logger.Save(w.ctx, event); err != nil {
					w.log.Error("failed to save event", zap.Error(err), zap.String("event_type", event.Type))
				}
			}
		}
	})
}

// Log enqueues event without blocking. When the buffer is full the event is
// dropped.
func (w *Worker) Log(event Event) {
	select {
	case w.eventCh <- event:
	default:
		w.log.Warn("event channel full, dropping event", zap.String("event_type", event.Type))
	}
}

func (w *Worker) Shutdown() {
	w.cancel()
	w.wg.Wait()
	close(w.eventCh)
}
