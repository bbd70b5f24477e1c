// Package domain contains persistence models for company subscriptions.
package domain

import (
	"time"

	plandomain "github.com/Ethronics/ecosnap-sub001/internal/plan/domain"
	"github.com/bwmarrin/snowflake"
)

// Status represents lifecycle states for a subscription.
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
	StatusPending   Status = "pending"
	StatusTrial     Status = "trial"
)

// Subscription captures a company's plan agreement. At most one row per
// company; the unique index carries the invariant.
type Subscription struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID   snowflake.ID `gorm:"not null;uniqueIndex:ux_subscriptions_company" json:"company_id"`
	PlanID      snowflake.ID `gorm:"not null;index" json:"plan_id"`
	Status      Status       `gorm:"type:text;not null" json:"status"`
	StartedAt   time.Time    `gorm:"not null" json:"started_at"`
	ExpiresAt   time.Time    `gorm:"not null" json:"expires_at"`
	CancelledAt *time.Time   `gorm:"" json:"cancelled_at,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// ExpiresSoonWindow is how close to expiry a subscription starts warning.
const ExpiresSoonWindow = 7 * 24 * time.Hour

// View is the subscription snapshot returned to clients. The derived fields
// are computed here and treated as read-only downstream.
type View struct {
	Subscription
	PlanName            plandomain.PlanName `json:"plan_name"`
	DaysUntilExpiration int                 `json:"daysUntilExpiration"`
	ExpiresSoon         bool                `json:"expiresSoon"`
	IsActive            bool                `json:"isActive"`
}

// NewView derives the read-only snapshot fields at the given instant.
func NewView(sub Subscription, planName plandomain.PlanName, now time.Time) View {
	remaining := sub.ExpiresAt.Sub(now)
	days := int(remaining.Hours() / 24)
	if days < 0 {
		days = 0
	}

	active := sub.Status == StatusActive || sub.Status == StatusTrial
	if now.After(sub.ExpiresAt) {
		active = false
	}

	return View{
		Subscription:        sub,
		PlanName:            planName,
		DaysUntilExpiration: days,
		ExpiresSoon:         active && remaining > 0 && remaining <= ExpiresSoonWindow,
		IsActive:            active,
	}
}
