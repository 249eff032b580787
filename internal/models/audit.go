package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

const (
	AuditActionLogin              = "LOGIN"
	AuditActionLogout             = "LOGOUT"
	AuditActionUserCreate         = "USER_CREATE"
	AuditActionUserUpdate         = "USER_UPDATE"
	AuditActionUserDeactivate     = "USER_DEACTIVATE"
	AuditActionPasswordChange     = "PASSWORD_CHANGE"
	AuditActionAvailabilityUpdate = "AVAILABILITY_REPLACE"
	AuditActionSessionCreate      = "SESSION_CREATE"
	AuditActionSessionUpdate      = "SESSION_UPDATE"
	AuditActionSessionStatus      = "SESSION_STATUS"
	AuditActionSessionDelete      = "SESSION_DELETE"
	AuditActionReportExport       = "REPORT_EXPORT"
)

// AuditLog is an append-only audit trail record.
type AuditLog struct {
	ID         string         `db:"id" json:"id"`
	UserID     *string        `db:"user_id" json:"userId,omitempty"`
	Action     string         `db:"action" json:"action"`
	Resource   string         `db:"resource" json:"resource"`
	ResourceID *string        `db:"resource_id" json:"resourceId,omitempty"`
	Payload    types.JSONText `db:"payload" json:"payload,omitempty"`
	IPAddress  string         `db:"ip_address" json:"ipAddress"`
	UserAgent  string         `db:"user_agent" json:"userAgent"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
}

// Actor identifies who is performing a request.
type Actor struct {
	UserID    string
	Role      UserRole
	IP        string
	UserAgent string
}

// IsAdmin reports whether the actor may act on any trainer.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// CanActFor reports whether the actor may read or write trainerID's data.
func (a Actor) CanActFor(trainerID string) bool {
	return a.IsAdmin() || (a.UserID != "" && a.UserID == trainerID)
}
