package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AdminAuditLog is the append-only record of admin back-office actions
type AdminAuditLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	ActorID    *uuid.UUID      `json:"actor_id,omitempty" db:"actor_id"`
	Action     string          `json:"action" db:"action"`
	TargetType string          `json:"target_type" db:"target_type"`
	TargetID   uuid.UUID       `json:"target_id" db:"target_id"`
	Metadata   json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	IPAddress  string          `json:"ip_address" db:"ip_address"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// Admin action types
const (
	AdminActionSuspend          = "merchant.suspend"
	AdminActionResume           = "merchant.resume"
	AdminActionOverrideSet      = "subscription.override_set"
	AdminActionOverrideClear    = "subscription.override_clear"
	AdminActionOverrideExpired  = "subscription.override_expired"
	AdminActionSubscriptionSync = "subscription.sync"
	AdminActionLoginLink        = "connect.login_link"
	AdminActionSendReminder     = "invoice.send_reminder"
)

// Admin target types
const (
	AdminTargetOrganization = "organization"
	AdminTargetInvoice      = "invoice"
	AdminTargetUser         = "user"
)

// AuditFilter narrows admin audit log listings
type AuditFilter struct {
	ActorID    *uuid.UUID `form:"actor_id"`
	TargetID   *uuid.UUID `form:"target_id"`
	Action     string     `form:"action"`
	TargetType string     `form:"target_type"`
	Pagination
}
