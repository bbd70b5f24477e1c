// Package domain contains alert models and the alert lifecycle rules.
package domain

import (
	"context"
	"errors"
	"time"

	authdomain "github.com/Ethronics/ecosnap-sub001/internal/auth/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Type classifies what produced the alert.
type Type string

const (
	TypeThresholdBreach Type = "threshold_breach"
	TypeAnomaly         Type = "anomaly"
	TypeInfo            Type = "info"
	TypeWarning         Type = "warning"
	TypeCritical        Type = "critical"
)

func (t Type) Valid() bool {
	switch t {
	case TypeThresholdBreach, TypeAnomaly, TypeInfo, TypeWarning, TypeCritical:
		return true
	default:
		return false
	}
}

// Severity ranks how urgent the alert is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// Status follows a one-way lifecycle: new -> acknowledged -> resolved.
// Resolved is terminal; an alert never moves backwards.
type Status string

const (
	StatusNew          Status = "new"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
)

// rank orders statuses along the lifecycle. Unknown statuses rank lowest.
func (s Status) rank() int {
	switch s {
	case StatusNew:
		return 0
	case StatusAcknowledged:
		return 1
	case StatusResolved:
		return 2
	default:
		return -1
	}
}

// CanTransition reports whether moving from s to next is a forward step.
func (s Status) CanTransition(next Status) bool {
	if next.rank() < 0 {
		return false
	}
	return next.rank() > s.rank()
}

// Alert is a notification raised for a company. UserID addresses the
// alert to one user; when it is zero, AudienceRoles scopes visibility
// to a subset of roles, and an empty audience means every role in the
// company sees it.
type Alert struct {
	ID             snowflake.ID   `gorm:"primaryKey" json:"id"`
	CompanyID      snowflake.ID   `gorm:"not null;index" json:"company_id"`
	UserID         snowflake.ID   `gorm:"index" json:"user_id,omitempty"`
	Type           Type           `gorm:"type:text;not null" json:"type"`
	Severity       Severity       `gorm:"type:text;not null" json:"severity"`
	Status         Status         `gorm:"type:text;not null;default:'new'" json:"status"`
	Title          string         `gorm:"type:text;not null" json:"title"`
	Message        string         `gorm:"type:text;not null" json:"message"`
	Domain         string         `gorm:"type:text" json:"domain,omitempty"`
	AudienceRoles  datatypes.JSON `gorm:"type:jsonb" json:"audience_roles,omitempty"`
	AcknowledgedBy snowflake.ID   `json:"acknowledged_by,omitempty"`
	ResolvedBy     snowflake.ID   `json:"resolved_by,omitempty"`
	AcknowledgedAt *time.Time     `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Alert) TableName() string { return "alerts" }

type CreateAlertRequest struct {
	CompanyID     snowflake.ID
	UserID        snowflake.ID
	Type          Type
	Severity      Severity
	Title         string
	Message       string
	Domain        string
	AudienceRoles []authdomain.Role
}

// ListFilter narrows a company alert listing. Role filters by audience,
// UserID identifies the caller for addressed alerts, Status filters by
// lifecycle state; a zero Role bypasses visibility filtering entirely.
type ListFilter struct {
	Role   authdomain.Role
	UserID snowflake.ID
	Status Status
}

type Service interface {
	Create(ctx context.Context, req CreateAlertRequest) (*Alert, error)
	ListByCompany(ctx context.Context, companyID snowflake.ID, filter ListFilter) ([]Alert, error)
	Acknowledge(ctx context.Context, companyID, alertID, userID snowflake.ID) (*Alert, error)
	Resolve(ctx context.Context, companyID, alertID, userID snowflake.ID) (*Alert, error)
}

var (
	ErrNotFound          = errors.New("alert_not_found")
	ErrInvalidCompany    = errors.New("invalid_company")
	ErrInvalidType       = errors.New("invalid_alert_type")
	ErrInvalidSeverity   = errors.New("invalid_alert_severity")
	ErrInvalidTitle      = errors.New("invalid_alert_title")
	ErrInvalidTransition = errors.New("invalid_alert_transition")
)
