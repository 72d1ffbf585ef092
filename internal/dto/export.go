package dto

import "github.com/noah-isme/aladab-school-api/internal/models"

// ExportRequest captures the POST /exports payload. The period comes from the request context.
type ExportRequest struct {
	Type      models.ExportType   `json:"type" validate:"required,oneof=broadsheet class_statement"`
	ClassID   string              `json:"classId" validate:"required"`
	SubjectID string              `json:"subjectId,omitempty"`
	Format    models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress and, once finished, a signed download link.
type ExportStatusResponse struct {
	ID          string              `json:"id"`
	Status      models.ExportStatus `json:"status"`
	Progress    int                 `json:"progress"`
	DownloadURL *string             `json:"downloadUrl,omitempty"`
	ExpiresAt   *string             `json:"expiresAt,omitempty"`
	Error       *string             `json:"error,omitempty"`
}
