package service

import (
	"context"
	"errors"
	"time"

	plandomain "github.com/Ethronics/ecosnap-sub001/internal/plan/domain"
	subscriptiondomain "github.com/Ethronics/ecosnap-sub001/internal/subscription/domain"
	"github.com/Ethronics/ecosnap-sub001/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// renewPeriod is how far each renewal pushes the expiry out.
const renewPeriod = 30 * 24 * time.Hour

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	now   func() time.Time
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("subscription.service"),
		genID: p.GenID,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) GetByCompany(ctx context.Context, companyID snowflake.ID) (subscriptiondomain.View, error) {
	if companyID == 0 {
		return subscriptiondomain.View{}, subscriptiondomain.ErrInvalidCompany
	}

	sub, err := s.find(ctx, companyID)
	if err != nil {
		return subscriptiondomain.View{}, err
	}

	now := s.now()
	if (sub.Status == subscriptiondomain.StatusActive || sub.Status == subscriptiondomain.StatusTrial) && now.After(sub.ExpiresAt) {
		sub.Status = subscriptiondomain.StatusExpired
		if err := s.db.WithContext(ctx).
			Model(&subscriptiondomain.Subscription{}).
			Where("id = ?", sub.ID).
			Updates(map[string]any{"status": sub.Status, "updated_at": now}).Error; err != nil {
			return subscriptiondomain.View{}, err
		}
	}

	plan, err := s.planByID(ctx, sub.PlanID)
	if err != nil {
		return subscriptiondomain.View{}, err
	}
	return subscriptiondomain.NewView(*sub, plan.Name, now), nil
}

func (s *Service) Renew(ctx context.Context, req subscriptiondomain.RenewRequest) (subscriptiondomain.View, error) {
	if req.CompanyID == 0 {
		return subscriptiondomain.View{}, subscriptiondomain.ErrInvalidCompany
	}

	sub, err := s.find(ctx, req.CompanyID)
	if err != nil {
		return subscriptiondomain.View{}, err
	}

	now := s.now()
	plan, err := s.planByID(ctx, sub.PlanID)
	if err != nil {
		return subscriptiondomain.View{}, err
	}
	if req.PlanName != "" {
		plan, err = s.planByName(ctx, req.PlanName)
		if err != nil {
			return subscriptiondomain.View{}, err
		}
	}

	// Renewing before expiry extends the current period; after expiry the
	// new period starts from now.
	base := now
	if sub.ExpiresAt.After(now) {
		base = sub.ExpiresAt
	}

	updates := map[string]any{
		"status":       subscriptiondomain.StatusActive,
		"plan_id":      plan.ID,
		"expires_at":   base.Add(renewPeriod),
		"cancelled_at": nil,
		"updated_at":   now,
	}
	if err := s.db.WithContext(ctx).
		Model(&subscriptiondomain.Subscription{}).
		Where("id = ?", sub.ID).
		Updates(updates).Error; err != nil {
		return subscriptiondomain.View{}, err
	}

	s.log.Info("subscription renewed",
		zap.String("company_id", req.CompanyID.String()),
		zap.String("plan", string(plan.Name)),
	)
	return s.GetByCompany(ctx, req.CompanyID)
}

func (s *Service) Cancel(ctx context.Context, companyID snowflake.ID) (subscriptiondomain.View, error) {
	if companyID == 0 {
		return subscriptiondomain.View{}, subscriptiondomain.ErrInvalidCompany
	}

	sub, err := s.find(ctx, companyID)
	if err != nil {
		return subscriptiondomain.View{}, err
	}

	now := s.now()
	if err := s.db.WithContext(ctx).
		Model(&subscriptiondomain.Subscription{}).
		Where("id = ?", sub.ID).
		Updates(map[string]any{
			"status":       subscriptiondomain.StatusCancelled,
			"cancelled_at": now,
			"updated_at":   now,
		}).Error; err != nil {
		return subscriptiondomain.View{}, err
	}

	s.log.Info("subscription cancelled", zap.String("company_id", companyID.String()))
	return s.GetByCompany(ctx, companyID)
}

func (s *Service) Start(ctx context.Context, companyID snowflake.ID, planName plandomain.PlanName, status subscriptiondomain.Status) (subscriptiondomain.View, error) {
	if companyID == 0 {
		return subscriptiondomain.View{}, subscriptiondomain.ErrInvalidCompany
	}
	switch status {
	case subscriptiondomain.StatusActive, subscriptiondomain.StatusTrial, subscriptiondomain.StatusPending:
	default:
		return subscriptiondomain.View{}, subscriptiondomain.ErrInvalidStatus
	}

	plan, err := s.planByName(ctx, planName)
	if err != nil {
		return subscriptiondomain.View{}, err
	}

	now := s.now()
	sub := subscriptiondomain.Subscription{
		ID:        s.genID.Generate(),
		CompanyID: companyID,
		PlanID:    plan.ID,
		Status:    status,
		StartedAt: now,
		ExpiresAt: now.Add(renewPeriod),
	}
	if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return subscriptiondomain.View{}, subscriptiondomain.ErrAlreadySubscribed
		}
		return subscriptiondomain.View{}, err
	}
	return subscriptiondomain.NewView(sub, plan.Name, now), nil
}

func (s *Service) ApplyPlanPayment(ctx context.Context, companyID, planID snowflake.ID) error {
	plan, err := s.planByID(ctx, planID)
	if err != nil {
		return err
	}
	_, err = s.Renew(ctx, subscriptiondomain.RenewRequest{CompanyID: companyID, PlanName: plan.Name})
	return err
}

func (s *Service) find(ctx context.Context, companyID snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var sub subscriptiondomain.Subscription
	err := s.db.WithContext(ctx).Where("company_id = ?", companyID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, subscriptiondomain.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (s *Service) planByID(ctx context.Context, id snowflake.ID) (*plandomain.Plan, error) {
	var plan plandomain.Plan
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, plandomain.ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (s *Service) planByName(ctx context.Context, name plandomain.PlanName) (*plandomain.Plan, error) {
	parsed, err := plandomain.ParseName(string(name))
	if err != nil {
		return nil, err
	}
	var plan plandomain.Plan
	err = s.db.WithContext(ctx).Where("name = ?", parsed).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, plandomain.ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}
