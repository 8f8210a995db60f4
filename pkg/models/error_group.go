// Package models contains shared data models used across the Faultline codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Group statuses. Resolved groups reopen on reoccurrence (policy-controlled);
// ignored groups stay ignored.
const (
	GroupStatusOpen     = "open"
	GroupStatusResolved = "resolved"
	GroupStatusIgnored  = "ignored"
)

// ValidGroupStatus reports whether s is a known group status.
func ValidGroupStatus(s string) bool {
	return s == GroupStatusOpen || s == GroupStatusResolved || s == GroupStatusIgnored
}

// ErrorGroup is the deduplicated identity of a recurring error. Exactly one
// group exists per fingerprint; Count tracks every event ever linked to it.
type ErrorGroup struct {
	ID          uuid.UUID         `db:"id"            json:"id"`
	Fingerprint string            `db:"fingerprint"   json:"fingerprint"`
	Name        string            `db:"name"          json:"name"`
	Message     string            `db:"message"       json:"message"`
	Status      string            `db:"status"        json:"status"`
	FirstSeenAt time.Time         `db:"first_seen_at" json:"first_seen_at"`
	LastSeenAt  time.Time         `db:"last_seen_at"  json:"last_seen_at"`
	Count       int               `db:"count"         json:"count"`
	Metadata    map[string]string `db:"metadata"      json:"metadata,omitempty"`
	CreatedAt   time.Time         `db:"created_at"    json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"    json:"updated_at"`
}
