package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/training-api/internal/models"
)

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type auditEntry struct {
	actorID    string
	action     string
	resource   string
	resourceID string
	oldValues  map[string]interface{}
	newValues  map[string]interface{}
	meta       models.RequestMeta
}

// recordAudit stores an audit row. Failures are logged, never returned.
func recordAudit(ctx context.Context, repo auditRecorder, logger *zap.Logger, entry auditEntry) {
	if repo == nil {
		return
	}
	log := &models.AuditLog{
		Action:    entry.action,
		Resource:  entry.resource,
		IPAddress: entry.meta.IP,
		UserAgent: entry.meta.UserAgent,
	}
	if entry.actorID != "" {
		actor := entry.actorID
		log.UserID = &actor
	}
	if entry.resourceID != "" {
		resourceID := entry.resourceID
		log.ResourceID = &resourceID
	}
	if entry.oldValues != nil {
		log.OldValues, _ = json.Marshal(entry.oldValues)
	}
	if entry.newValues != nil {
		log.NewValues, _ = json.Marshal(entry.newValues)
	}
	if err := repo.CreateAuditLog(ctx, log); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", entry.action), zap.Error(err))
	}
}
