package service

import (
	"context"
	"testing"

	alertdomain "github.com/Ethronics/ecosnap-sub001/internal/alert/domain"
	authdomain "github.com/Ethronics/ecosnap-sub001/internal/auth/domain"
	usagedomain "github.com/Ethronics/ecosnap-sub001/internal/usage/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeUsageService struct {
	decision usagedomain.Decision
	added    []float64
}

func (f *fakeUsageService) Snapshot(context.Context, snowflake.ID) (usagedomain.Snapshot, error) {
	return usagedomain.Snapshot{}, nil
}

func (f *fakeUsageService) Check(_ context.Context, _ snowflake.ID, feature usagedomain.Feature, _ float64) (usagedomain.Decision, error) {
	decision := f.decision
	decision.Feature = feature
	return decision, nil
}

func (f *fakeUsageService) RecordRequest(context.Context, snowflake.ID) (usagedomain.Decision, error) {
	return usagedomain.Decision{Allowed: true}, nil
}

func (f *fakeUsageService) IncrementDomains(context.Context, snowflake.ID) error   { return nil }
func (f *fakeUsageService) IncrementEmployees(context.Context, snowflake.ID) error { return nil }

func (f *fakeUsageService) AddData(_ context.Context, _ snowflake.ID, mb float64) error {
	f.added = append(f.added, mb)
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeUsageService, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&alertdomain.Alert{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	usage := &fakeUsageService{decision: usagedomain.Decision{Allowed: true}}
	svc := NewService(ServiceParam{DB: db, Log: zap.NewNop(), GenID: node, Usage: usage}).(*Service)
	return svc, usage, node
}

func createAlert(t *testing.T, svc *Service, companyID snowflake.ID, roles ...authdomain.Role) *alertdomain.Alert {
	t.Helper()
	alert, err := svc.Create(context.Background(), alertdomain.CreateAlertRequest{
		CompanyID:     companyID,
		Type:          alertdomain.TypeThresholdBreach,
		Severity:      alertdomain.SeverityHigh,
		Title:         "temperature threshold breached",
		Message:       "temperature reached 42.00",
		Domain:        "greenhouse-1",
		AudienceRoles: roles,
	})
	require.NoError(t, err)
	return alert
}

func TestCreateValidation(t *testing.T) {
	svc, _, node := newTestService(t)
	companyID := node.Generate()

	_, err := svc.Create(context.Background(), alertdomain.CreateAlertRequest{
		CompanyID: companyID,
		Type:      "bogus",
		Severity:  alertdomain.SeverityLow,
		Title:     "x",
	})
	assert.ErrorIs(t, err, alertdomain.ErrInvalidType)

	_, err = svc.Create(context.Background(), alertdomain.CreateAlertRequest{
		CompanyID: companyID,
		Type:      alertdomain.TypeInfo,
		Severity:  "extreme",
		Title:     "x",
	})
	assert.ErrorIs(t, err, alertdomain.ErrInvalidSeverity)

	_, err = svc.Create(context.Background(), alertdomain.CreateAlertRequest{
		CompanyID: companyID,
		Type:      alertdomain.TypeInfo,
		Severity:  alertdomain.SeverityLow,
		Title:     "  ",
	})
	assert.ErrorIs(t, err, alertdomain.ErrInvalidTitle)
}

func TestLifecycleIsForwardOnly(t *testing.T) {
	svc, _, node := newTestService(t)
	companyID := node.Generate()
	userID := node.Generate()
	alert := createAlert(t, svc, companyID)

	acked, err := svc.Acknowledge(context.Background(), companyID, alert.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, alertdomain.StatusAcknowledged, acked.Status)
	assert.Equal(t, userID, acked.AcknowledgedBy)
	assert.NotNil(t, acked.AcknowledgedAt)

	// Acknowledging twice is a conflict, not a rewind.
	_, err = svc.Acknowledge(context.Background(), companyID, alert.ID, userID)
	assert.ErrorIs(t, err, alertdomain.ErrInvalidTransition)

	resolved, err := svc.Resolve(context.Background(), companyID, alert.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, alertdomain.StatusResolved, resolved.Status)

	// Resolved is terminal.
	_, err = svc.Acknowledge(context.Background(), companyID, alert.ID, userID)
	assert.ErrorIs(t, err, alertdomain.ErrInvalidTransition)
	_, err = svc.Resolve(context.Background(), companyID, alert.ID, userID)
	assert.ErrorIs(t, err, alertdomain.ErrInvalidTransition)
}

func TestResolveSkipsAcknowledge(t *testing.T) {
	svc, _, node := newTestService(t)
	companyID := node.Generate()
	alert := createAlert(t, svc, companyID)

	// new -> resolved is a legal forward jump.
	resolved, err := svc.Resolve(context.Background(), companyID, alert.ID, node.Generate())
	require.NoError(t, err)
	assert.Equal(t, alertdomain.StatusResolved, resolved.Status)
}

func TestTransitionScopedToCompany(t *testing.T) {
	svc, _, node := newTestService(t)
	companyID := node.Generate()
	alert := createAlert(t, svc, companyID)

	_, err := svc.Acknowledge(context.Background(), node.Generate(), alert.ID, node.Generate())
	assert.ErrorIs(t, err, alertdomain.ErrNotFound)
}

func TestListFiltersByAudienceRole(t *testing.T) {
	svc, _, node := newTestService(t)
	companyID := node.Generate()

	createAlert(t, svc, companyID)                                        // visible to everyone
	createAlert(t, svc, companyID, authdomain.RoleAdmin)                  // admins only
	createAlert(t, svc, companyID, authdomain.RoleManager, authdomain.RoleStaff)

	all, err := svc.ListByCompany(context.Background(), companyID, alertdomain.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	staff, err := svc.ListByCompany(context.Background(), companyID, alertdomain.ListFilter{Role: authdomain.RoleStaff})
	require.NoError(t, err)
	assert.Len(t, staff, 2)

	employee, err := svc.ListByCompany(context.Background(), companyID, alertdomain.ListFilter{Role: authdomain.RoleEmployee})
	require.NoError(t, err)
	assert.Len(t, employee, 1)
}

func TestCreateChargesStorage(t *testing.T) {
	svc, usage, node := newTestService(t)

	createAlert(t, svc, node.Generate())

	require.Len(t, usage.added, 1)
	assert.Greater(t, usage.added[0], 0.0)
}

func TestCreateBlockedAtStorageLimit(t *testing.T) {
	svc, usage, node := newTestService(t)
	usage.decision = usagedomain.Decision{Allowed: false, Current: 700, Limit: 700}

	_, err := svc.Create(context.Background(), alertdomain.CreateAlertRequest{
		CompanyID: node.Generate(),
		Type:      alertdomain.TypeThresholdBreach,
		Severity:  alertdomain.SeverityHigh,
		Title:     "temperature threshold breached",
		Message:   "temperature reached 42.00",
	})
	assert.ErrorIs(t, err, usagedomain.ErrLimitExceeded)
	assert.Empty(t, usage.added)

	var count int64
	require.NoError(t, svc.db.Model(&alertdomain.Alert{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestListRespectsRecipient(t *testing.T) {
	svc, _, node := newTestService(t)
	companyID := node.Generate()
	recipient := node.Generate()

	createAlert(t, svc, companyID) // visible to everyone
	_, err := svc.Create(context.Background(), alertdomain.CreateAlertRequest{
		CompanyID: companyID,
		UserID:    recipient,
		Type:      alertdomain.TypeInfo,
		Severity:  alertdomain.SeverityLow,
		Title:     "weekly report ready",
	})
	require.NoError(t, err)

	mine, err := svc.ListByCompany(context.Background(), companyID, alertdomain.ListFilter{
		Role:   authdomain.RoleStaff,
		UserID: recipient,
	})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	// Another staff user never sees an alert addressed to someone else.
	others, err := svc.ListByCompany(context.Background(), companyID, alertdomain.ListFilter{
		Role:   authdomain.RoleStaff,
		UserID: node.Generate(),
	})
	require.NoError(t, err)
	assert.Len(t, others, 1)

	// The admin listing bypasses visibility filtering entirely.
	all, err := svc.ListByCompany(context.Background(), companyID, alertdomain.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListFiltersByStatus(t *testing.T) {
	svc, _, node := newTestService(t)
	companyID := node.Generate()

	first := createAlert(t, svc, companyID)
	createAlert(t, svc, companyID)
	_, err := svc.Resolve(context.Background(), companyID, first.ID, node.Generate())
	require.NoError(t, err)

	open, err := svc.ListByCompany(context.Background(), companyID, alertdomain.ListFilter{Status: alertdomain.StatusNew})
	require.NoError(t, err)
	assert.Len(t, open, 1)
}
