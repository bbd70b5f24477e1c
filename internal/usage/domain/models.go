// Package domain contains persistence models for plan usage tracking.
package domain

import (
	"context"
	"errors"
	"time"

	plandomain "github.com/Ethronics/ecosnap-sub001/internal/plan/domain"
	"github.com/bwmarrin/snowflake"
)

// Feature tags the plan limit a caller wants to consume.
type Feature string

const (
	FeatureDomains   Feature = "domains"
	FeatureEmployees Feature = "employees"
	FeatureRequests  Feature = "requests"
	FeatureData      Feature = "data"
)

// Valid reports whether the feature tag is known.
func (f Feature) Valid() bool {
	switch f {
	case FeatureDomains, FeatureEmployees, FeatureRequests, FeatureData:
		return true
	default:
		return false
	}
}

// DayFormat is the UTC calendar-day key used for the daily request reset.
// The day boundary is decided server-side in one timezone; client clocks
// are never consulted.
const DayFormat = "2006-01-02"

// Usage holds per-company counters compared against plan limits.
type Usage struct {
	CompanyID       snowflake.ID `gorm:"primaryKey" json:"company_id"`
	DomainsUsed     int          `gorm:"not null;default:0" json:"domainsUsed"`
	EmployeesAdded  int          `gorm:"not null;default:0" json:"employeesAdded"`
	RequestsToday   int          `gorm:"not null;default:0" json:"requestsToday"`
	DataStoredMB    float64      `gorm:"not null;default:0" json:"dataStored"`
	LastRequestDate string       `gorm:"type:text;not null;default:''" json:"lastRequestDate"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Usage) TableName() string { return "usages" }

// Decision is the outcome of a limit check. When locked, Message names the
// limit that was hit so the caller can surface an upgrade prompt.
type Decision struct {
	Feature Feature `json:"feature"`
	Allowed bool    `json:"allowed"`
	Current float64 `json:"current"`
	Limit   float64 `json:"limit"`
	Message string  `json:"message,omitempty"`
}

type Snapshot struct {
	Usage Usage               `json:"usage"`
	Plan  plandomain.PlanName `json:"plan"`
}

type Service interface {
	Snapshot(ctx context.Context, companyID snowflake.ID) (Snapshot, error)
	// Check compares the feature's counter to the plan limit without
	// consuming anything. addMB only applies to FeatureData.
	Check(ctx context.Context, companyID snowflake.ID, feature Feature, addMB float64) (Decision, error)
	// RecordRequest consumes one daily request, resetting the counter on
	// the first request of each UTC day.
	RecordRequest(ctx context.Context, companyID snowflake.ID) (Decision, error)
	IncrementDomains(ctx context.Context, companyID snowflake.ID) error
	IncrementEmployees(ctx context.Context, companyID snowflake.ID) error
	AddData(ctx context.Context, companyID snowflake.ID, mb float64) error
}

var (
	ErrInvalidCompany = errors.New("invalid_company")
	ErrInvalidFeature = errors.New("invalid_feature")
	// ErrLimitExceeded is returned by writers that enforce a plan limit
	// themselves instead of leaving the Decision to the caller.
	ErrLimitExceeded = errors.New("usage_limit_reached")
)
