package models

import (
	"time"

	"github.com/google/uuid"
)

// Alert records one notification dispatch attempt for a (rule, group) pair.
// Failed sends are recorded too (Notified=false) so the dedup cooldown starts
// even when a channel is down. The alerts table doubles as the dedup ledger.
type Alert struct {
	ID           uuid.UUID `db:"id"            json:"id"`
	RuleID       uuid.UUID `db:"rule_id"       json:"rule_id"`
	GroupID      uuid.UUID `db:"group_id"      json:"group_id"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
	Notified     bool      `db:"notified"      json:"notified"`
	ErrorMessage string    `db:"error_message" json:"error_message"`
}
