package domain

import (
	"context"
	"errors"

	plandomain "github.com/Ethronics/ecosnap-sub001/internal/plan/domain"
	"github.com/bwmarrin/snowflake"
)

type RenewRequest struct {
	CompanyID snowflake.ID
	// PlanName optionally switches the plan while renewing.
	PlanName plandomain.PlanName
}

type Service interface {
	// GetByCompany returns the company's subscription snapshot, lazily
	// flipping an overrun active/trial subscription to expired.
	GetByCompany(ctx context.Context, companyID snowflake.ID) (View, error)
	Renew(ctx context.Context, req RenewRequest) (View, error)
	Cancel(ctx context.Context, companyID snowflake.ID) (View, error)
	// Start creates the initial subscription for a company.
	Start(ctx context.Context, companyID snowflake.ID, planName plandomain.PlanName, status Status) (View, error)
	// ApplyPlanPayment activates the paid plan after a completed payment.
	ApplyPlanPayment(ctx context.Context, companyID, planID snowflake.ID) error
}

var (
	ErrNotFound          = errors.New("subscription_not_found")
	ErrInvalidCompany    = errors.New("invalid_company")
	ErrInvalidStatus     = errors.New("invalid_subscription_status")
	ErrAlreadySubscribed = errors.New("subscription_exists")
)
