// Package domain contains persistence models for subscription plans.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// PlanName identifies one of the fixed plan tiers.
type PlanName string

const (
	PlanFree    PlanName = "Free"
	PlanPro     PlanName = "Pro"
	PlanPremium PlanName = "Premium"
)

// Tier returns the position of the plan in the upgrade order.
// Free < Pro < Premium; unknown names sort below Free.
func (n PlanName) Tier() int {
	switch n {
	case PlanFree:
		return 0
	case PlanPro:
		return 1
	case PlanPremium:
		return 2
	default:
		return -1
	}
}

// AtLeast reports whether the plan satisfies the given minimum tier.
func (n PlanName) AtLeast(min PlanName) bool {
	return n.Tier() >= min.Tier()
}

// ParseName normalizes a plan name, rejecting unknown tiers.
func ParseName(raw string) (PlanName, error) {
	switch PlanName(raw) {
	case PlanFree, PlanPro, PlanPremium:
		return PlanName(raw), nil
	default:
		return "", ErrUnknownPlan
	}
}

// Plan bounds what a company may use.
type Plan struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	Name              PlanName     `gorm:"type:text;not null;uniqueIndex" json:"name"`
	MaxDomains        int          `gorm:"not null" json:"max_domains"`
	MaxEmployees      int          `gorm:"not null" json:"max_employees"`
	RequestsPerDay    int          `gorm:"not null" json:"requests_per_day"`
	DataRetentionDays int          `gorm:"not null" json:"data_retention_days"`
	PriceCents        int64        `gorm:"not null;default:0" json:"price_cents"`
	Currency          string       `gorm:"type:text;not null;default:'USD'" json:"currency"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "plans" }

var (
	ErrUnknownPlan  = errors.New("unknown_plan")
	ErrPlanNotFound = errors.New("plan_not_found")
)
