package domain

import (
	"time"

	"github.com/google/uuid"
)

// ImportAuditEntry records who triggered an import action and what happened.
type ImportAuditEntry struct {
	ID         int64     `json:"id"`
	OperatorID uuid.UUID `json:"operator_id"`
	SystemID   string    `json:"system_id"`
	FileName   string    `json:"file_name"`
	Action     string    `json:"action"`
	PreviewID  string    `json:"preview_id,omitempty"`
	RowNumber  *int      `json:"row_number,omitempty"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

// Audit actions recorded by the import service.
const (
	AuditActionPreview = "preview"
	AuditActionCommit  = "commit"
	AuditActionCancel  = "cancel"
	AuditActionError   = "error"
)
