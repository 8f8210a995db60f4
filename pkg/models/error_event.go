package models

import (
	"time"

	"github.com/google/uuid"
)

// Event severities, ordered from most to least urgent.
const (
	SeverityCritical = "critical"
	SeverityError    = "error"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// ValidSeverity reports whether s is a known severity.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityCritical, SeverityError, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

// ErrorEvent is a single reported failure occurrence. Events are immutable
// once written; they are only removed by cascading group deletion.
type ErrorEvent struct {
	ID        uuid.UUID         `db:"id"         json:"id"`
	GroupID   uuid.UUID         `db:"group_id"   json:"group_id"`
	Message   string            `db:"message"    json:"message"`
	Stack     *string           `db:"stack"      json:"stack,omitempty"`
	Severity  string            `db:"severity"   json:"severity"`
	Context   map[string]string `db:"context"    json:"context,omitempty"`
	URL       *string           `db:"url"        json:"url,omitempty"`
	UserRef   *string           `db:"user_ref"   json:"user_ref,omitempty"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}
