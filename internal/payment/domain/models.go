// Package domain contains persistence models for the payment ledger.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status marks the outcome of a payment attempt.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
)

// Valid reports whether the status is one of the ledger statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusCompleted, StatusPending, StatusFailed:
		return true
	default:
		return false
	}
}

// Payment is an immutable ledger entry. Rows are only ever appended.
type Payment struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID     snowflake.ID `gorm:"not null;index" json:"company_id"`
	PlanID        snowflake.ID `gorm:"not null;index" json:"plan_id"`
	AmountCents   int64        `gorm:"not null" json:"amount_cents"`
	Currency      string       `gorm:"type:text;not null" json:"currency"`
	PaymentMethod string       `gorm:"type:text;not null" json:"payment_method"`
	TransactionID string       `gorm:"type:text;not null;uniqueIndex" json:"transaction_id"`
	Status        Status       `gorm:"type:text;not null" json:"status"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

type CreatePaymentRequest struct {
	CompanyID     string  `json:"company_id"`
	PlanName      string  `json:"plan_name"`
	AmountCents   int64   `json:"amount_cents"`
	Currency      string  `json:"currency"`
	PaymentMethod string  `json:"payment_method"`
	Status        *Status `json:"status,omitempty"`
}

type Service interface {
	Create(ctx context.Context, req CreatePaymentRequest) (*Payment, error)
	ListByCompany(ctx context.Context, companyID snowflake.ID) ([]Payment, error)
	ListAll(ctx context.Context) ([]Payment, error)
}

var (
	ErrInvalidCompany = errors.New("invalid_company")
	ErrInvalidAmount  = errors.New("invalid_amount")
	ErrInvalidMethod  = errors.New("invalid_payment_method")
	ErrInvalidStatus  = errors.New("invalid_payment_status")
)
