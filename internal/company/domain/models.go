// Package domain contains persistence models for companies (tenants).
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Company represents a tenant owning domains, users, subscriptions and payments.
type Company struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name      string            `gorm:"type:text;not null" json:"name"`
	Slug      string            `gorm:"type:text;not null;uniqueIndex:ux_companies_slug" json:"slug"`
	IsDefault bool              `gorm:"column:is_default" json:"is_default"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Company) TableName() string { return "companies" }

type CreateCompanyRequest struct {
	Name string `json:"name"`
}

type Service interface {
	Create(ctx context.Context, req CreateCompanyRequest) (*Company, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Company, error)
}

var (
	ErrNotFound    = errors.New("company_not_found")
	ErrInvalidName = errors.New("invalid_company_name")
)
