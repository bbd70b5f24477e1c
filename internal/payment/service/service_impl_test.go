package service

import (
	"context"
	"errors"
	"testing"

	paymentdomain "github.com/Ethronics/ecosnap-sub001/internal/payment/domain"
	plandomain "github.com/Ethronics/ecosnap-sub001/internal/plan/domain"
	subscriptiondomain "github.com/Ethronics/ecosnap-sub001/internal/subscription/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeSubscriptionService struct {
	applied  []snowflake.ID
	applyErr error
}

func (f *fakeSubscriptionService) GetByCompany(ctx context.Context, companyID snowflake.ID) (subscriptiondomain.View, error) {
	return subscriptiondomain.View{}, nil
}

func (f *fakeSubscriptionService) Renew(ctx context.Context, req subscriptiondomain.RenewRequest) (subscriptiondomain.View, error) {
	return subscriptiondomain.View{}, nil
}

func (f *fakeSubscriptionService) Cancel(ctx context.Context, companyID snowflake.ID) (subscriptiondomain.View, error) {
	return subscriptiondomain.View{}, nil
}

func (f *fakeSubscriptionService) Start(ctx context.Context, companyID snowflake.ID, planName plandomain.PlanName, status subscriptiondomain.Status) (subscriptiondomain.View, error) {
	return subscriptiondomain.View{}, nil
}

func (f *fakeSubscriptionService) ApplyPlanPayment(ctx context.Context, companyID, planID snowflake.ID) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, planID)
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeSubscriptionService, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&plandomain.Plan{}, &paymentdomain.Payment{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	require.NoError(t, db.Create(&plandomain.Plan{
		ID:         node.Generate(),
		Name:       plandomain.PlanPro,
		PriceCents: 2900,
		Currency:   "USD",
	}).Error)

	subs := &fakeSubscriptionService{}
	svc := NewService(ServiceParam{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Subscription: subs,
	}).(*Service)
	return svc, subs, db, node
}

func TestCompletedPaymentActivatesPlan(t *testing.T) {
	svc, subs, db, node := newTestService(t)
	companyID := node.Generate()

	payment, err := svc.Create(context.Background(), paymentdomain.CreatePaymentRequest{
		CompanyID:     companyID.String(),
		PlanName:      string(plandomain.PlanPro),
		AmountCents:   2900,
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusCompleted, payment.Status)
	assert.NotEmpty(t, payment.TransactionID)
	assert.Equal(t, "USD", payment.Currency)
	assert.Len(t, subs.applied, 1)

	var stored paymentdomain.Payment
	require.NoError(t, db.Where("company_id = ?", companyID).First(&stored).Error)
	assert.Equal(t, payment.TransactionID, stored.TransactionID)
}

func TestPendingPaymentDoesNotActivate(t *testing.T) {
	svc, subs, _, node := newTestService(t)
	pending := paymentdomain.StatusPending

	payment, err := svc.Create(context.Background(), paymentdomain.CreatePaymentRequest{
		CompanyID:     node.Generate().String(),
		PlanName:      string(plandomain.PlanPro),
		AmountCents:   2900,
		PaymentMethod: "card",
		Status:        &pending,
	})
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusPending, payment.Status)
	assert.Empty(t, subs.applied)
}

func TestFailedActivationRollsBackLedger(t *testing.T) {
	svc, subs, db, node := newTestService(t)
	subs.applyErr = errors.New("plan lookup failed")
	companyID := node.Generate()

	_, err := svc.Create(context.Background(), paymentdomain.CreatePaymentRequest{
		CompanyID:     companyID.String(),
		PlanName:      string(plandomain.PlanPro),
		AmountCents:   2900,
		PaymentMethod: "card",
	})
	require.Error(t, err)

	// The books and the subscription must agree: no activation, no row.
	var count int64
	require.NoError(t, db.Model(&paymentdomain.Payment{}).Where("company_id = ?", companyID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _, node := newTestService(t)
	companyID := node.Generate().String()

	_, err := svc.Create(context.Background(), paymentdomain.CreatePaymentRequest{
		CompanyID:     "not-a-number",
		PlanName:      string(plandomain.PlanPro),
		AmountCents:   100,
		PaymentMethod: "card",
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidCompany)

	_, err = svc.Create(context.Background(), paymentdomain.CreatePaymentRequest{
		CompanyID:     companyID,
		PlanName:      string(plandomain.PlanPro),
		AmountCents:   0,
		PaymentMethod: "card",
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidAmount)

	_, err = svc.Create(context.Background(), paymentdomain.CreatePaymentRequest{
		CompanyID:     companyID,
		PlanName:      "Platinum",
		AmountCents:   100,
		PaymentMethod: "card",
	})
	assert.ErrorIs(t, err, plandomain.ErrUnknownPlan)
}

func TestListByCompanyOnlyReturnsOwnLedger(t *testing.T) {
	svc, _, _, node := newTestService(t)
	first := node.Generate()
	second := node.Generate()

	for _, companyID := range []snowflake.ID{first, first, second} {
		_, err := svc.Create(context.Background(), paymentdomain.CreatePaymentRequest{
			CompanyID:     companyID.String(),
			PlanName:      string(plandomain.PlanPro),
			AmountCents:   2900,
			PaymentMethod: "card",
		})
		require.NoError(t, err)
	}

	payments, err := svc.ListByCompany(context.Background(), first)
	require.NoError(t, err)
	assert.Len(t, payments, 2)

	all, err := svc.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
