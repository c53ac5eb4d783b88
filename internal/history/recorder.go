package history

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/khanglvm/tool-preselect/internal/storage"
)

const (
	// queueSize is the buffer size of the event queue. Events are dropped when it is full.
	queueSize = 1000

	// batchSize is the number of pending events that triggers an immediate flush.
	batchSize = 10

	// flushInterval is how often pending events are flushed.
	flushInterval = 50 * time.Millisecond

	// writeTimeout bounds a single storage write.
	writeTimeout = 5 * time.Second
)

// Sink is where flushed search records end up.
type Sink interface {
	RecordSearch(ctx context.Context, search storage.SearchRecord) error
}

// Recorder writes search events to a Sink in the background with non-blocking enqueue.
type Recorder struct {
	sink     Sink
	logger   *zap.Logger
	queue    chan Event
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	enabled  bool
	mu       sync.RWMutex
}

// NewRecorder starts a recorder writing to sink. A nil sink yields a disabled recorder.
func NewRecorder(sink Sink, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Recorder{
		sink:     sink,
		logger:   logger.Named("history"),
		queue:    make(chan Event, queueSize),
		stopChan: make(chan struct{}),
		enabled:  sink != nil,
	}

	r.wg.Add(1)
	go r.run()

	return r
}

// Record queues an event. It never blocks; when the queue is full the event is dropped.
func (r *Recorder) Record(event Event) {
	if !r.IsEnabled() {
		return
	}

	select {
	case r.queue <- event:
	default:
		r.logger.Warn("history queue full, dropping event", zap.String("pipeline", event.Pipeline))
	}
}

// Stop flushes queued events and stops the background writer.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
		r.wg.Wait()
	})
}

// Disable makes Record a no-op.
func (r *Recorder) Disable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = false
}

// IsEnabled reports whether events are being recorded.
func (r *Recorder) IsEnabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled
}

// QueueSize returns the number of events waiting to be written.
func (r *Recorder) QueueSize() int {
	return len(r.queue)
}

func (r *Recorder) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, batchSize)

	for {
		select {
		case event := <-r.queue:
			batch = append(batch, event)
			if len(batch) >= batchSize {
				r.flush(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = batch[:0]
			}

		case <-r.stopChan:
			// Drain whatever is still queued
			for {
				select {
				case event := <-r.queue:
					batch = append(batch, event)
					if len(batch) >= batchSize {
						r.flush(batch)
						batch = batch[:0]
					}
				default:
					r.flush(batch)
					return
				}
			}
		}
	}
}

func (r *Recorder) flush(events []Event) {
	for _, event := range events {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := r.sink.RecordSearch(ctx, event.ToRecord()); err != nil {
			r.logger.Warn("failed to record search", zap.Error(err))
		}
		cancel()
	}
}
