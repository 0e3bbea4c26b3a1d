package audit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Recorder accepts audit entries. Record must never block the caller and
// must never surface a failure into the request path.
type Recorder interface {
	Record(entry Entry)
}

// Store persists entries. Implemented by PgStore; tests substitute fakes.
type Store interface {
	Append(ctx context.Context, entry Entry) error
}

// AsyncRecorder hands entries to a background writer through a buffered
// channel. When the buffer is full the entry is dropped and counted;
// audit completeness is best-effort by design.
type AsyncRecorder struct {
	store  Store
	logger zerolog.Logger

	queue   chan Entry
	done    chan struct{}
	closer  sync.Once
	mu      sync.Mutex
	closed  bool
	dropped int64
}

func NewAsyncRecorder(store Store, queueSize int, logger zerolog.Logger) *AsyncRecorder {
	if queueSize <= 0 {
		queueSize = 1024
	}

	r := &AsyncRecorder{
		store:  store,
		logger: logger,
		queue:  make(chan Entry, queueSize),
		done:   make(chan struct{}),
	}

	go r.run()

	return r
}

func (r *AsyncRecorder) Record(entry Entry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	// The send happens under the same mutex Close holds while closing the
	// queue, so a late Record drops the entry rather than panicking on a
	// closed channel.
	r.mu.Lock()
	if !r.closed {
		select {
		case r.queue <- entry:
			r.mu.Unlock()
			return
		default:
		}
	}
	r.dropped++
	r.mu.Unlock()

	r.logger.Warn().
		Str("resource", entry.Resource).
		Str("action", entry.Action).
		Msg("audit entry dropped")
}

// Dropped reports how many entries were discarded because the queue was full.
func (r *AsyncRecorder) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close stops accepting entries and drains the queue before returning.
func (r *AsyncRecorder) Close() {
	r.closer.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.queue)
		r.mu.Unlock()
	})
	<-r.done
}

func (r *AsyncRecorder) run() {
	defer close(r.done)

	for entry := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.store.Append(ctx, entry); err != nil {
			r.logger.Error().Err(err).
				Str("resource", entry.Resource).
				Str("action", entry.Action).
				Msg("failed to persist audit entry")
		}
		cancel()
	}
}

// NopRecorder discards everything. Used in tests and tools.
type NopRecorder struct{}

func (NopRecorder) Record(Entry) {}
