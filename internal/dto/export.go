package dto

import "github.com/noah-isme/fyp-portal-api/internal/models"

// ExportRequest captures POST /defense/exports payload.
type ExportRequest struct {
	Format models.ExportFormat `json:"format" validate:"required,oneof=csv pdf ics"`
	From   *string             `json:"from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	To     *string             `json:"to,omitempty" validate:"omitempty,datetime=2006-01-02"`
	RoomID *string             `json:"roomId,omitempty"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
