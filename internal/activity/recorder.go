// Package activity records the audit trail of character mutations.
//
// Entries are recorded only after the mutation they describe has committed.
// Recording is asynchronous and never reports failure to the caller: lost
// entries go to the log, the dashboard_activity_failures_total counter and
// Sentry instead.
package activity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/models"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entry describes one mutation.
type Entry struct {
	UserID      uuid.UUID
	Action      string
	CharacterID *uint
	Description string
	Extra       map[string]interface{}
	IPAddress   string
	UserAgent   string
}

// Logger is what services depend on.
type Logger interface {
	Record(ctx context.Context, e Entry)
}

// Sink receives every row after it is written.
type Sink interface {
	Publish(ctx context.Context, row models.ActivityLog) error
}

const (
	defaultCapacity  = 1000
	defaultBatchSize = 50
	defaultInterval  = 2 * time.Second
)

type Option func(*Recorder)

func WithSink(s Sink) Option {
	return func(r *Recorder) { r.sink = s }
}

func WithInterval(d time.Duration) Option {
	return func(r *Recorder) { r.interval = d }
}

func WithCapacity(n int) Option {
	return func(r *Recorder) { r.capacity = n }
}

// WithFailureHook is called with every failure after it has been reported.
func WithFailureHook(fn func(reason string, count int, err error)) Option {
	return func(r *Recorder) { r.onFailure = fn }
}

// Recorder buffers entries and writes them in batches.
type Recorder struct {
	db        *gorm.DB
	sink      Sink
	capacity  int
	interval  time.Duration
	onFailure func(reason string, count int, err error)

	mu       sync.Mutex
	buffer   []models.ActivityLog
	stopped  bool
	flushMu  sync.Mutex
	done     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
}

func NewRecorder(db *gorm.DB, opts ...Option) *Recorder {
	r := &Recorder{
		db:       db,
		capacity: defaultCapacity,
		interval: defaultInterval,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.buffer = make([]models.ActivityLog, 0, defaultBatchSize)
	go r.flushLoop()
	return r
}

// Record enqueues e. It never blocks on the store. Entries recorded after
// Stop are reported as lost.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	row := toRow(e)

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		r.fail(ctx, "stopped", 1, fmt.Errorf("activity recorder stopped, dropping %s entry", e.Action))
		return
	}
	if len(r.buffer) >= r.capacity {
		r.mu.Unlock()
		r.fail(ctx, "overflow", 1, fmt.Errorf("activity buffer full, dropping %s entry", e.Action))
		return
	}
	r.buffer = append(r.buffer, row)
	needFlush := len(r.buffer) >= defaultBatchSize
	r.mu.Unlock()

	if needFlush {
		go r.Flush()
	}
}

func toRow(e Entry) models.ActivityLog {
	details := datatypes.JSONMap{"description": e.Description}
	for k, v := range e.Extra {
		details[k] = v
	}
	return models.ActivityLog{
		UserID:      e.UserID,
		ActionType:  e.Action,
		CharacterID: e.CharacterID,
		Details:     details,
		IPAddress:   e.IPAddress,
		UserAgent:   e.UserAgent,
		CreatedAt:   time.Now().UTC(),
	}
}

func (r *Recorder) flushLoop() {
	defer close(r.finished)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Flush()
		case <-r.done:
			r.Flush()
			return
		}
	}
}

// Flush writes everything buffered so far.
func (r *Recorder) Flush() {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	r.mu.Lock()
	if len(r.buffer) == 0 {
		r.mu.Unlock()
		return
	}
	batch := r.buffer
	r.buffer = make([]models.ActivityLog, 0, defaultBatchSize)
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.db.WithContext(ctx).CreateInBatches(&batch, defaultBatchSize).Error; err != nil {
		r.fail(ctx, "write", len(batch), fmt.Errorf("failed to write activity logs: %w", err))
		return
	}
	metrics.ActivityRecordedTotal.Add(float64(len(batch)))

	if r.sink == nil {
		return
	}
	for _, row := range batch {
		if err := r.sink.Publish(ctx, row); err != nil {
			r.fail(ctx, "publish", 1, err)
		}
	}
}

// Stop flushes what is left and stops the background loop. Once it returns
// no more writes reach the store.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.stopped = true
		r.mu.Unlock()
		close(r.done)
		<-r.finished
	})
}

func (r *Recorder) fail(ctx context.Context, reason string, count int, err error) {
	slog.ErrorContext(ctx, "activity log lost", "reason", reason, "count", count, "error", err)
	metrics.ActivityFailuresTotal.WithLabelValues(reason).Add(float64(count))
	sentry.CaptureException(err)
	if r.onFailure != nil {
		r.onFailure(reason, count, err)
	}
}
