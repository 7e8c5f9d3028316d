package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog is one admin mutation of quest state. PlayerID is empty for
// global actions (window resets, reward tables); Kind is empty when the
// action spans every kind.
type AuditLog struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID  string `gorm:"index:idx_audit_trace;size:64;not null" json:"trace_id"`
	Actor    string `gorm:"size:64" json:"actor"`
	Action   string `gorm:"size:64;not null;index:idx_audit_action" json:"action"`
	PlayerID string `gorm:"index:idx_audit_player;size:36" json:"player_id,omitempty"`
	Kind     string `gorm:"size:16" json:"kind,omitempty"`

	Request  datatypes.JSON `json:"request,omitempty"`
	Response datatypes.JSON `json:"response,omitempty"`
	Status   int            `json:"status"`
	Error    string         `gorm:"type:text" json:"error,omitempty"`

	IP         string    `gorm:"size:45" json:"ip"`
	DurationMs int       `json:"duration_ms"`
	CreatedAt  time.Time `gorm:"index:idx_audit_created" json:"created_at"`
}
