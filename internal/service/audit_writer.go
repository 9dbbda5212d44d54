package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/training-api/internal/models"
	"github.com/noah-isme/training-api/pkg/jobs"
)

// AuditWriterConfig sizes the background audit queue.
type AuditWriterConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
}

// AuditWriter persists audit rows off the request path. When the buffer is
// full the row is written synchronously so no entry is lost.
type AuditWriter struct {
	repo   auditRecorder
	queue  *jobs.Queue[*models.AuditLog]
	logger *zap.Logger
}

// NewAuditWriter builds an AuditWriter. Call Start before use and Stop on
// shutdown to flush buffered rows.
func NewAuditWriter(repo auditRecorder, logger *zap.Logger, cfg AuditWriterConfig) *AuditWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &AuditWriter{repo: repo, logger: logger}
	w.queue = jobs.NewQueue("audit", w.persist, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return w
}

// Start launches the queue workers.
func (w *AuditWriter) Start(ctx context.Context) {
	w.queue.Start(ctx)
}

// Stop flushes buffered rows and stops the workers.
func (w *AuditWriter) Stop() {
	w.queue.Stop()
}

// CreateAuditLog buffers the row for background persistence.
func (w *AuditWriter) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	err := w.queue.TryEnqueue(log)
	if err == nil {
		return nil
	}
	if errors.Is(err, jobs.ErrQueueFull) {
		w.logger.Warn("audit queue full, writing inline", zap.String("action", log.Action))
	}
	return w.repo.CreateAuditLog(ctx, log)
}

func (w *AuditWriter) persist(ctx context.Context, log *models.AuditLog) error {
	return w.repo.CreateAuditLog(ctx, log)
}
