package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/aladab-school-api/internal/models"
)

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// recordAudit writes a system audit entry. Failures are logged and never surface to the caller.
func recordAudit(ctx context.Context, audit auditLogger, logger *zap.Logger, actorID, action, resource, resourceID string, values interface{}) {
	if audit == nil {
		return
	}
	var newValues []byte
	if values != nil {
		newValues, _ = json.Marshal(values)
	}
	var userID *string
	if actorID != "" {
		userID = &actorID
	}
	entry := &models.AuditLog{
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		NewValues:  newValues,
		IPAddress:  "system",
		UserAgent:  "service",
	}
	if err := audit.CreateAuditLog(ctx, entry); err != nil && logger != nil {
		logger.Warn("failed to record audit", zap.String("action", action), zap.String("resource_id", resourceID), zap.Error(err))
	}
}
