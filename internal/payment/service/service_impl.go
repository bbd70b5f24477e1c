package service

import (
	"context"
	"errors"
	"strings"
	"time"

	paymentdomain "github.com/Ethronics/ecosnap-sub001/internal/payment/domain"
	plandomain "github.com/Ethronics/ecosnap-sub001/internal/plan/domain"
	subscriptiondomain "github.com/Ethronics/ecosnap-sub001/internal/subscription/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	subscription subscriptiondomain.Service
	now          func() time.Time
}

type ServiceParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Subscription subscriptiondomain.Service
}

func NewService(p ServiceParam) paymentdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("payment.service"),
		genID:        p.GenID,
		subscription: p.Subscription,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create appends a ledger entry. A completed payment also activates the
// paid plan on the company's subscription.
func (s *Service) Create(ctx context.Context, req paymentdomain.CreatePaymentRequest) (*paymentdomain.Payment, error) {
	companyID, err := snowflake.ParseString(req.CompanyID)
	if err != nil || companyID == 0 {
		return nil, paymentdomain.ErrInvalidCompany
	}
	if req.AmountCents <= 0 {
		return nil, paymentdomain.ErrInvalidAmount
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return nil, paymentdomain.ErrInvalidMethod
	}

	planName, err := plandomain.ParseName(req.PlanName)
	if err != nil {
		return nil, err
	}
	plan, err := s.planByName(ctx, planName)
	if err != nil {
		return nil, err
	}

	status := paymentdomain.StatusCompleted
	if req.Status != nil {
		status = *req.Status
	}
	if !status.Valid() {
		return nil, paymentdomain.ErrInvalidStatus
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = plan.Currency
	}

	payment := paymentdomain.Payment{
		ID:            s.genID.Generate(),
		CompanyID:     companyID,
		PlanID:        plan.ID,
		AmountCents:   req.AmountCents,
		Currency:      currency,
		PaymentMethod: req.PaymentMethod,
		TransactionID: uuid.NewString(),
		Status:        status,
		CreatedAt:     s.now(),
	}
	// The ledger row and the plan activation commit or fail together; a
	// failed activation must not leave a completed payment on the books.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		if status == paymentdomain.StatusCompleted {
			return s.subscription.ApplyPlanPayment(ctx, companyID, plan.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payment recorded",
		zap.String("company_id", companyID.String()),
		zap.String("plan", string(plan.Name)),
		zap.String("transaction_id", payment.TransactionID),
		zap.String("status", string(status)),
	)
	return &payment, nil
}

func (s *Service) ListByCompany(ctx context.Context, companyID snowflake.ID) ([]paymentdomain.Payment, error) {
	if companyID == 0 {
		return nil, paymentdomain.ErrInvalidCompany
	}
	var payments []paymentdomain.Payment
	err := s.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *Service) ListAll(ctx context.Context) ([]paymentdomain.Payment, error) {
	var payments []paymentdomain.Payment
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *Service) planByName(ctx context.Context, name plandomain.PlanName) (*plandomain.Plan, error) {
	var plan plandomain.Plan
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, plandomain.ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}
