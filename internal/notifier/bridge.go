package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/katalog-materi-api/internal/models"
	"github.com/noah-isme/katalog-materi-api/pkg/jobs"
)

// Bridge connects catalog mutations to the websocket hub. Mutation signals
// are coalesced inside a short window, then a background job recomputes the
// unfiltered aggregate once and broadcasts it to every subscriber. The
// mutating request never waits on any of this.
type Bridge struct {
	hub    *Hub
	stats  statsProvider
	queue  *jobs.Queue
	window time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	pending bool
	timer   *time.Timer
}

// NewBridge constructs the bridge and its recompute queue. Call Start before
// signalling mutations.
func NewBridge(hub *Hub, stats statsProvider, window time.Duration, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	if window <= 0 {
		window = 750 * time.Millisecond
	}

	b := &Bridge{
		hub:    hub,
		stats:  stats,
		window: window,
		logger: logger,
	}
	b.queue = jobs.NewQueue("stats-broadcast", b.recompute, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 4,
		MaxRetries: 2,
		RetryDelay: time.Second,
		Logger:     logger,
	})
	return b
}

// Start launches the recompute worker.
func (b *Bridge) Start(ctx context.Context) {
	b.queue.Start(ctx)
}

// Stop drains the worker and cancels any pending coalesce timer.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.pending = false
	b.mu.Unlock()
	b.queue.Stop()
}

// MutationObserved signals that the catalog changed. Calls landing inside
// the coalesce window collapse into a single recompute.
func (b *Bridge) MutationObserved() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending {
		return
	}
	b.pending = true
	b.timer = time.AfterFunc(b.window, b.flush)
}

func (b *Bridge) flush() {
	b.mu.Lock()
	b.pending = false
	b.timer = nil
	b.mu.Unlock()

	if b.hub.ClientCount() == 0 {
		return
	}

	if err := b.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: "stats_broadcast"}); err != nil {
		b.logger.Warn("failed to enqueue stats broadcast", zap.Error(err))
	}
}

// recompute runs on the queue worker: compute the unfiltered aggregate once
// and broadcast it. The aggregate carries no per-role fields, so one payload
// serves every subscriber.
func (b *Bridge) recompute(ctx context.Context, _ jobs.Job) error {
	summary, err := b.stats.Summary(ctx, models.MateriFilter{})
	if err != nil {
		return err
	}
	b.hub.Broadcast(EventStatsUpdate, summary)
	return nil
}
