package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	plandomain "github.com/Ethronics/ecosnap-sub001/internal/plan/domain"
	subscriptiondomain "github.com/Ethronics/ecosnap-sub001/internal/subscription/domain"
	usagedomain "github.com/Ethronics/ecosnap-sub001/internal/usage/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

type ServiceParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

func NewService(p ServiceParam) usagedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("usage.service"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Snapshot(ctx context.Context, companyID snowflake.ID) (usagedomain.Snapshot, error) {
	if companyID == 0 {
		return usagedomain.Snapshot{}, usagedomain.ErrInvalidCompany
	}
	usage, plan, err := s.load(ctx, companyID)
	if err != nil {
		return usagedomain.Snapshot{}, err
	}
	s.resetIfNewDay(usage)
	return usagedomain.Snapshot{Usage: *usage, Plan: plan.Name}, nil
}

func (s *Service) Check(ctx context.Context, companyID snowflake.ID, feature usagedomain.Feature, addMB float64) (usagedomain.Decision, error) {
	if companyID == 0 {
		return usagedomain.Decision{}, usagedomain.ErrInvalidCompany
	}
	if !feature.Valid() {
		return usagedomain.Decision{}, usagedomain.ErrInvalidFeature
	}

	usage, plan, err := s.load(ctx, companyID)
	if err != nil {
		return usagedomain.Decision{}, err
	}
	s.resetIfNewDay(usage)

	var current, limit float64
	switch feature {
	case usagedomain.FeatureDomains:
		current, limit = float64(usage.DomainsUsed), float64(plan.MaxDomains)
	case usagedomain.FeatureEmployees:
		current, limit = float64(usage.EmployeesAdded), float64(plan.MaxEmployees)
	case usagedomain.FeatureRequests:
		current, limit = float64(usage.RequestsToday), float64(plan.RequestsPerDay)
	case usagedomain.FeatureData:
		current, limit = usage.DataStoredMB+addMB, dataLimitMB(plan)
	}

	decision := usagedomain.Decision{
		Feature: feature,
		Current: current,
		Limit:   limit,
		Allowed: current < limit,
	}
	if feature == usagedomain.FeatureData {
		// The candidate size is already folded in; equality still fits.
		decision.Allowed = current <= limit
	}
	if !decision.Allowed {
		decision.Message = fmt.Sprintf("%s limit reached for the %s plan", feature, plan.Name)
	}
	return decision, nil
}

func (s *Service) RecordRequest(ctx context.Context, companyID snowflake.ID) (usagedomain.Decision, error) {
	if companyID == 0 {
		return usagedomain.Decision{}, usagedomain.ErrInvalidCompany
	}

	var decision usagedomain.Decision
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		usage, plan, err := s.loadTx(ctx, tx, companyID)
		if err != nil {
			return err
		}

		today := s.now().Format(usagedomain.DayFormat)
		if usage.LastRequestDate != today {
			usage.RequestsToday = 0
			usage.LastRequestDate = today
		}

		decision = usagedomain.Decision{
			Feature: usagedomain.FeatureRequests,
			Current: float64(usage.RequestsToday),
			Limit:   float64(plan.RequestsPerDay),
			Allowed: usage.RequestsToday < plan.RequestsPerDay,
		}
		if !decision.Allowed {
			decision.Message = fmt.Sprintf("requests limit reached for the %s plan", plan.Name)
			return nil
		}

		usage.RequestsToday++
		decision.Current = float64(usage.RequestsToday)
		return tx.Model(&usagedomain.Usage{}).
			Where("company_id = ?", companyID).
			Updates(map[string]any{
				"requests_today":    usage.RequestsToday,
				"last_request_date": usage.LastRequestDate,
				"updated_at":        s.now(),
			}).Error
	})
	return decision, err
}

func (s *Service) IncrementDomains(ctx context.Context, companyID snowflake.ID) error {
	return s.increment(ctx, companyID, "domains_used")
}

func (s *Service) IncrementEmployees(ctx context.Context, companyID snowflake.ID) error {
	return s.increment(ctx, companyID, "employees_added")
}

func (s *Service) AddData(ctx context.Context, companyID snowflake.ID, mb float64) error {
	if companyID == 0 {
		return usagedomain.ErrInvalidCompany
	}
	if mb <= 0 {
		return nil
	}
	if err := s.ensureRow(ctx, companyID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&usagedomain.Usage{}).
		Where("company_id = ?", companyID).
		Updates(map[string]any{
			"data_stored_mb": gorm.Expr("data_stored_mb + ?", mb),
			"updated_at":     s.now(),
		}).Error
}

func (s *Service) increment(ctx context.Context, companyID snowflake.ID, column string) error {
	if companyID == 0 {
		return usagedomain.ErrInvalidCompany
	}
	if err := s.ensureRow(ctx, companyID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&usagedomain.Usage{}).
		Where("company_id = ?", companyID).
		Updates(map[string]any{
			column:       gorm.Expr(column+" + 1"),
			"updated_at": s.now(),
		}).Error
}

// resetIfNewDay zeroes the in-memory daily counter when the stored day has
// rolled over. Persisting the reset is deferred to the next RecordRequest.
func (s *Service) resetIfNewDay(usage *usagedomain.Usage) {
	if usage.LastRequestDate != s.now().Format(usagedomain.DayFormat) {
		usage.RequestsToday = 0
	}
}

func (s *Service) load(ctx context.Context, companyID snowflake.ID) (*usagedomain.Usage, *plandomain.Plan, error) {
	return s.loadTx(ctx, s.db, companyID)
}

func (s *Service) loadTx(ctx context.Context, tx *gorm.DB, companyID snowflake.ID) (*usagedomain.Usage, *plandomain.Plan, error) {
	if err := s.ensureRowTx(ctx, tx, companyID); err != nil {
		return nil, nil, err
	}

	var usage usagedomain.Usage
	if err := tx.WithContext(ctx).Where("company_id = ?", companyID).First(&usage).Error; err != nil {
		return nil, nil, err
	}

	var sub subscriptiondomain.Subscription
	err := tx.WithContext(ctx).Where("company_id = ?", companyID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, subscriptiondomain.ErrNotFound
		}
		return nil, nil, err
	}

	var plan plandomain.Plan
	if err := tx.WithContext(ctx).Where("id = ?", sub.PlanID).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, plandomain.ErrPlanNotFound
		}
		return nil, nil, err
	}

	return &usage, &plan, nil
}

func (s *Service) ensureRow(ctx context.Context, companyID snowflake.ID) error {
	return s.ensureRowTx(ctx, s.db, companyID)
}

func (s *Service) ensureRowTx(ctx context.Context, tx *gorm.DB, companyID snowflake.ID) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&usagedomain.Usage{}).
		Where("company_id = ?", companyID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&usagedomain.Usage{CompanyID: companyID}).Error
}

// dataLimitMB derives the storage allowance from the retention window.
func dataLimitMB(plan *plandomain.Plan) float64 {
	return float64(plan.DataRetentionDays) * 100
}
