// Package audit records every engine decision in an append-only log.
//
// Appends are asynchronous: records go into a bounded queue drained by a
// single worker. When the queue is full the record is dropped, logged and
// counted, and the caller is never blocked.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/kiranshivaraju/dispatchiq/internal/metrics"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
	"github.com/rs/zerolog"
)

// DefaultQueueSize is used when NewWriter is given a non-positive size.
const DefaultQueueSize = 1024

const appendTimeout = 5 * time.Second

// Appender persists a single decision record.
type Appender interface {
	AppendDecision(ctx context.Context, d *models.AIDecisionLog) error
}

// Writer drains queued records into an Appender.
type Writer struct {
	dst     Appender
	queue   chan *models.AIDecisionLog
	logger  zerolog.Logger
	metrics *metrics.EngineMetrics

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewWriter starts the worker goroutine. Call Close to stop it.
func NewWriter(dst Appender, size int, logger zerolog.Logger, m *metrics.EngineMetrics) *Writer {
	if size <= 0 {
		size = DefaultQueueSize
	}
	w := &Writer{
		dst:     dst,
		queue:   make(chan *models.AIDecisionLog, size),
		logger:  logger.With().Str("component", "audit").Logger(),
		metrics: m,
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// Enqueue offers rec to the queue. It reports false if the record was
// dropped because the queue is full or the writer is closed.
func (w *Writer) Enqueue(rec *models.AIDecisionLog) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		w.logger.Warn().
			Str("tenant_id", rec.TenantID.String()).
			Str("decision_id", rec.ID.String()).
			Msg("audit record dropped after close")
		w.metrics.IncAuditDropped()
		return false
	}

	select {
	case w.queue <- rec:
		return true
	default:
		w.logger.Warn().
			Str("tenant_id", rec.TenantID.String()).
			Str("decision_id", rec.ID.String()).
			Str("type", string(rec.Type)).
			Int("queue_size", cap(w.queue)).
			Msg("audit queue full, record dropped")
		w.metrics.IncAuditDropped()
		return false
	}
}

// Close stops accepting records and waits until the queue is drained or ctx
// ends. It is safe to call more than once.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) run() {
	defer close(w.done)
	for rec := range w.queue {
		w.write(rec)
	}
}

func (w *Writer) write(rec *models.AIDecisionLog) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().
				Interface("panic", r).
				Str("tenant_id", rec.TenantID.String()).
				Str("decision_id", rec.ID.String()).
				Msg("panic while appending audit record")
			w.metrics.IncAuditFailed()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()

	if err := w.dst.AppendDecision(ctx, rec); err != nil {
		w.logger.Error().Err(err).
			Str("tenant_id", rec.TenantID.String()).
			Str("decision_id", rec.ID.String()).
			Msg("failed to append audit record")
		w.metrics.IncAuditFailed()
	}
}
