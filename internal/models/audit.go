package models

import (
	"encoding/json"
	"time"
)

// Audit actions recorded for scheduling and enrollment mutations.
const (
	AuditActionCreate       = "CREATE"
	AuditActionUpdate       = "UPDATE"
	AuditActionDelete       = "DELETE"
	AuditActionStatusChange = "STATUS_CHANGE"
	AuditActionTeacherAdd   = "TEACHER_ADD"
	AuditActionTeacherDrop  = "TEACHER_REMOVE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string          `db:"id" json:"id"`
	UserID     *string         `db:"user_id" json:"user_id,omitempty"`
	Action     string          `db:"action" json:"action"`
	Resource   string          `db:"resource" json:"resource"`
	ResourceID string          `db:"resource_id" json:"resource_id"`
	Payload    json.RawMessage `db:"payload" json:"payload,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}
