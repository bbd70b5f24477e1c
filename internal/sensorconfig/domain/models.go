// Package domain contains per-domain sensor threshold configuration.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Range bounds a metric. Optimal sits inside [Min, Max].
type Range struct {
	Optimal float64 `json:"optimal"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

func (r Range) Valid() bool {
	return r.Min <= r.Optimal && r.Optimal <= r.Max
}

// Parameters holds the per-metric operating ranges.
type Parameters struct {
	Temperature Range `json:"temperature"`
	Humidity    Range `json:"humidity"`
}

// SensorConfig holds alert thresholds for one sensor domain of a company.
// Exactly one row exists per (company, domain) pair.
type SensorConfig struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID         snowflake.ID `gorm:"not null;uniqueIndex:ux_sensor_configs_company_domain" json:"company_id"`
	Domain            string       `gorm:"type:text;not null;uniqueIndex:ux_sensor_configs_company_domain" json:"domain"`
	ThresholdTemp     float64      `gorm:"not null" json:"threshold_temp"`
	ThresholdHumidity float64      `gorm:"not null" json:"threshold_humidity"`
	Parameters        Parameters   `gorm:"serializer:json" json:"parameters"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (SensorConfig) TableName() string { return "sensor_configs" }

type UpsertRequest struct {
	CompanyID         snowflake.ID `json:"-"`
	Domain            string       `json:"domain"`
	ThresholdTemp     float64      `json:"threshold_temp"`
	ThresholdHumidity float64      `json:"threshold_humidity"`
	Parameters        Parameters   `json:"parameters"`
}

type Service interface {
	Get(ctx context.Context, companyID snowflake.ID, domain string) (*SensorConfig, error)
	// Upsert creates or replaces the config for (company, domain).
	// Repeated calls for the same pair never produce a second row.
	Upsert(ctx context.Context, req UpsertRequest) (*SensorConfig, error)
	ListByCompany(ctx context.Context, companyID snowflake.ID) ([]SensorConfig, error)
}

var (
	ErrNotFound       = errors.New("sensor_config_not_found")
	ErrInvalidCompany = errors.New("invalid_company")
	ErrInvalidDomain  = errors.New("invalid_sensor_domain")
	ErrInvalidRange   = errors.New("invalid_sensor_range")
)
