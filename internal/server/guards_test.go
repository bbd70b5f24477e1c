package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authdomain "github.com/Ethronics/ecosnap-sub001/internal/auth/domain"
	"github.com/Ethronics/ecosnap-sub001/internal/config"
	plandomain "github.com/Ethronics/ecosnap-sub001/internal/plan/domain"
	sensordomain "github.com/Ethronics/ecosnap-sub001/internal/sensor/domain"
	"github.com/Ethronics/ecosnap-sub001/internal/sensor/hub"
	sensorconfigdomain "github.com/Ethronics/ecosnap-sub001/internal/sensorconfig/domain"
	subscriptiondomain "github.com/Ethronics/ecosnap-sub001/internal/subscription/domain"
	usagedomain "github.com/Ethronics/ecosnap-sub001/internal/usage/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAuthService struct {
	identities map[string]*authdomain.Identity
	authErr    error
}

func (f *fakeAuthService) Login(context.Context, authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	return nil, authdomain.ErrInvalidCredentials
}

func (f *fakeAuthService) Logout(context.Context, string) error { return nil }

func (f *fakeAuthService) Authenticate(_ context.Context, rawToken string) (*authdomain.Identity, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	identity, ok := f.identities[rawToken]
	if !ok {
		return nil, authdomain.ErrInvalidSession
	}
	return identity, nil
}

func (f *fakeAuthService) CreateUser(_ context.Context, req authdomain.CreateUserRequest) (*authdomain.User, error) {
	return &authdomain.User{Email: req.Email, Role: req.Role}, nil
}

func (f *fakeAuthService) ListUsers(context.Context) ([]authdomain.User, error) { return nil, nil }

func (f *fakeAuthService) GetUser(context.Context, string) (*authdomain.User, error) {
	return nil, authdomain.ErrUserNotFound
}

type fakeSubscriptionService struct {
	view subscriptiondomain.View
	err  error
}

func (f *fakeSubscriptionService) GetByCompany(context.Context, snowflake.ID) (subscriptiondomain.View, error) {
	return f.view, f.err
}

func (f *fakeSubscriptionService) Renew(context.Context, subscriptiondomain.RenewRequest) (subscriptiondomain.View, error) {
	return f.view, f.err
}

func (f *fakeSubscriptionService) Cancel(context.Context, snowflake.ID) (subscriptiondomain.View, error) {
	return f.view, f.err
}

func (f *fakeSubscriptionService) Start(context.Context, snowflake.ID, plandomain.PlanName, subscriptiondomain.Status) (subscriptiondomain.View, error) {
	return f.view, f.err
}

func (f *fakeSubscriptionService) ApplyPlanPayment(context.Context, snowflake.ID, snowflake.ID) error {
	return nil
}

type fakeUsageService struct {
	checkDecision      usagedomain.Decision
	recordDecision     usagedomain.Decision
	recorded           int
	domainsIncremented int
}

func (f *fakeUsageService) Snapshot(context.Context, snowflake.ID) (usagedomain.Snapshot, error) {
	return usagedomain.Snapshot{}, nil
}

func (f *fakeUsageService) Check(_ context.Context, _ snowflake.ID, feature usagedomain.Feature, _ float64) (usagedomain.Decision, error) {
	decision := f.checkDecision
	decision.Feature = feature
	return decision, nil
}

func (f *fakeUsageService) RecordRequest(context.Context, snowflake.ID) (usagedomain.Decision, error) {
	f.recorded++
	return f.recordDecision, nil
}

func (f *fakeUsageService) IncrementDomains(context.Context, snowflake.ID) error {
	f.domainsIncremented++
	return nil
}

func (f *fakeUsageService) IncrementEmployees(context.Context, snowflake.ID) error { return nil }
func (f *fakeUsageService) AddData(context.Context, snowflake.ID, float64) error   { return nil }

type fakeSensorConfigService struct {
	existing map[string]*sensorconfigdomain.SensorConfig
	upserts  []sensorconfigdomain.UpsertRequest
}

func (f *fakeSensorConfigService) Get(_ context.Context, _ snowflake.ID, domain string) (*sensorconfigdomain.SensorConfig, error) {
	cfg, ok := f.existing[domain]
	if !ok {
		return nil, sensorconfigdomain.ErrNotFound
	}
	return cfg, nil
}

func (f *fakeSensorConfigService) Upsert(_ context.Context, req sensorconfigdomain.UpsertRequest) (*sensorconfigdomain.SensorConfig, error) {
	f.upserts = append(f.upserts, req)
	return &sensorconfigdomain.SensorConfig{
		CompanyID:         req.CompanyID,
		Domain:            req.Domain,
		ThresholdTemp:     req.ThresholdTemp,
		ThresholdHumidity: req.ThresholdHumidity,
		Parameters:        req.Parameters,
	}, nil
}

func (f *fakeSensorConfigService) ListByCompany(context.Context, snowflake.ID) ([]sensorconfigdomain.SensorConfig, error) {
	return nil, nil
}

type serverFixture struct {
	server  *Server
	auth    *fakeAuthService
	subs    *fakeSubscriptionService
	usage   *fakeUsageService
	configs *fakeSensorConfigService
	hub     *hub.Hub
}

func activeView(plan plandomain.PlanName) subscriptiondomain.View {
	return subscriptiondomain.View{
		PlanName: plan,
		IsActive: true,
	}
}

func allowedDecision() usagedomain.Decision {
	return usagedomain.Decision{Allowed: true, Limit: 100}
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	auth := &fakeAuthService{identities: map[string]*authdomain.Identity{}}
	subs := &fakeSubscriptionService{view: activeView(plandomain.PlanPremium)}
	usage := &fakeUsageService{
		checkDecision:  allowedDecision(),
		recordDecision: allowedDecision(),
	}
	configs := &fakeSensorConfigService{existing: map[string]*sensorconfigdomain.SensorConfig{}}
	h := hub.NewHub()

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	srv := NewServer(ServerParams{
		Gin:             engine,
		Cfg:             config.Config{SubscriptionGrace: 3 * time.Second},
		Log:             zap.NewNop(),
		GenID:           node,
		Authsvc:         auth,
		SubscriptionSvc: subs,
		UsageSvc:        usage,
		SensorConfigSvc: configs,
		SensorHub:       h,
	})

	return &serverFixture{server: srv, auth: auth, subs: subs, usage: usage, configs: configs, hub: h}
}

func (f *serverFixture) token(role authdomain.Role) string {
	token := "token-" + string(role)
	f.auth.identities[token] = &authdomain.Identity{
		UserID:    1,
		CompanyID: 42,
		Role:      role,
	}
	return token
}

func (f *serverFixture) do(method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.server.Engine().ServeHTTP(rec, req)
	return rec
}

func (f *serverFixture) doJSON(method, path, token string, payload any) *httptest.ResponseRecorder {
	body, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.server.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func errorType(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	errObj, ok := body["error"].(map[string]interface{})
	require.True(t, ok, "expected an error object, got %v", body)
	typ, _ := errObj["type"].(string)
	return typ
}

func TestAuthRequiredRejectsMissingToken(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodGet, "/api/sensors/current", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", errorType(t, decodeBody(t, rec)))
}

func TestAuthRequiredDistinguishesExpiredSession(t *testing.T) {
	f := newServerFixture(t)
	f.auth.authErr = authdomain.ErrSessionExpired

	rec := f.do(http.MethodGet, "/api/sensors/current", "stale-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "session_expired", errorType(t, decodeBody(t, rec)))
}

func TestRequireRoleRedirectsToOwnDashboard(t *testing.T) {
	f := newServerFixture(t)
	token := f.token(authdomain.RoleEmployee)

	rec := f.do(http.MethodPost, "/api/users/create", token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "forbidden", errorType(t, body))
	assert.Equal(t, "/dashboard/employee", body["redirect"])
}

func TestSubscriptionGuardExpired(t *testing.T) {
	f := newServerFixture(t)
	token := f.token(authdomain.RoleAdmin)
	f.subs.view = subscriptiondomain.View{PlanName: plandomain.PlanPro, IsActive: false}

	rec := f.do(http.MethodGet, "/api/sensors/current", token)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "subscription_expired", errorType(t, body))
	assert.Equal(t, "expired", body["status"])
	assert.Equal(t, float64(3), body["grace_seconds"])
	assert.Equal(t, "/pricing?expired=true", body["redirect"])
}

func TestSubscriptionGuardRequiresPlanTier(t *testing.T) {
	f := newServerFixture(t)
	token := f.token(authdomain.RoleAdmin)
	f.subs.view = activeView(plandomain.PlanFree)

	rec := f.do(http.MethodPut, "/api/config/update", token)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "upgrade_required", errorType(t, body))
	assert.Equal(t, string(plandomain.PlanPro), body["required_plan"])
	assert.Equal(t, "/pricing?upgrade=true", body["redirect"])
}

func TestSubscriptionGuardMissingSubscription(t *testing.T) {
	f := newServerFixture(t)
	token := f.token(authdomain.RoleAdmin)
	f.subs.err = subscriptiondomain.ErrNotFound

	rec := f.do(http.MethodGet, "/api/sensors/current", token)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "upgrade_required", errorType(t, decodeBody(t, rec)))
}

func TestSubscriptionGuardWarnsNearExpiry(t *testing.T) {
	f := newServerFixture(t)
	token := f.token(authdomain.RoleStaff)
	view := activeView(plandomain.PlanPro)
	view.ExpiresSoon = true
	f.subs.view = view
	f.hub.Publish(sensordomain.SensorReading{
		Temperature: sensordomain.MetricOf(22),
		LastUpdated: time.Now().UTC(),
	})

	rec := f.do(http.MethodGet, "/api/sensors/current", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "expires_soon", rec.Header().Get("X-Subscription-Warning"))
}

func TestUsageGuardLocksFeature(t *testing.T) {
	f := newServerFixture(t)
	token := f.token(authdomain.RoleAdmin)
	f.usage.checkDecision = usagedomain.Decision{
		Allowed: false,
		Current: 5,
		Limit:   5,
		Message: "employee limit reached",
	}

	rec := f.do(http.MethodPost, "/api/users/create", token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "feature_locked", errorType(t, body))
	assert.Equal(t, string(usagedomain.FeatureEmployees), body["feature"])
	assert.Equal(t, float64(5), body["limit"])
	assert.Equal(t, "/pricing?upgrade=true", body["redirect"])
}

func upsertConfigPayload(domain string) sensorconfigdomain.UpsertRequest {
	return sensorconfigdomain.UpsertRequest{
		Domain:            domain,
		ThresholdTemp:     30,
		ThresholdHumidity: 80,
		Parameters: sensorconfigdomain.Parameters{
			Temperature: sensorconfigdomain.Range{Optimal: 22, Min: 10, Max: 30},
			Humidity:    sensorconfigdomain.Range{Optimal: 55, Min: 30, Max: 80},
		},
	}
}

func TestDomainLimitBlocksNewDomain(t *testing.T) {
	f := newServerFixture(t)
	token := f.token(authdomain.RoleAdmin)
	f.usage.checkDecision = usagedomain.Decision{
		Allowed: false,
		Current: 5,
		Limit:   5,
		Message: "domains limit reached",
	}

	rec := f.doJSON(http.MethodPut, "/api/config/update", token, upsertConfigPayload("greenhouse-6"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "feature_locked", errorType(t, body))
	assert.Equal(t, string(usagedomain.FeatureDomains), body["feature"])
	assert.Equal(t, "/pricing?upgrade=true", body["redirect"])
	assert.Empty(t, f.configs.upserts)
	assert.Zero(t, f.usage.domainsIncremented)
}

func TestDomainLimitSparesExistingDomain(t *testing.T) {
	f := newServerFixture(t)
	token := f.token(authdomain.RoleAdmin)
	f.configs.existing["greenhouse-1"] = &sensorconfigdomain.SensorConfig{
		CompanyID: 42,
		Domain:    "greenhouse-1",
	}
	// At the limit, re-tuning a domain that already has a config passes.
	f.usage.checkDecision = usagedomain.Decision{Allowed: false, Current: 5, Limit: 5}

	rec := f.doJSON(http.MethodPut, "/api/config/update", token, upsertConfigPayload("greenhouse-1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.configs.upserts, 1)
	assert.Zero(t, f.usage.domainsIncremented)
}

func TestNewDomainConsumesAllowance(t *testing.T) {
	f := newServerFixture(t)
	token := f.token(authdomain.RoleAdmin)

	rec := f.doJSON(http.MethodPut, "/api/config/update", token, upsertConfigPayload("greenhouse-2"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.configs.upserts, 1)
	assert.Equal(t, 1, f.usage.domainsIncremented)
}

func TestRequestQuotaExhausted(t *testing.T) {
	f := newServerFixture(t)
	token := f.token(authdomain.RoleStaff)
	f.usage.recordDecision = usagedomain.Decision{
		Feature: usagedomain.FeatureRequests,
		Allowed: false,
		Current: 100,
		Limit:   100,
		Message: "daily request limit reached",
	}

	rec := f.do(http.MethodGet, "/api/sensors/status", token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "feature_locked", errorType(t, decodeBody(t, rec)))
	assert.Equal(t, 1, f.usage.recorded)
}

func TestCurrentReadingBeforeFirstSample(t *testing.T) {
	f := newServerFixture(t)
	token := f.token(authdomain.RoleStaff)

	rec := f.do(http.MethodGet, "/api/sensors/current", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorType(t, decodeBody(t, rec)))
}

func TestConnectionStatusReportsClients(t *testing.T) {
	f := newServerFixture(t)
	token := f.token(authdomain.RoleStaff)
	f.hub.SetConnected(true)
	sub, _ := f.hub.Subscribe()
	defer sub.Close()

	rec := f.do(http.MethodGet, "/api/sensors/status", token)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["mqttConnected"])
	assert.Equal(t, float64(1), body["websocketClientCount"])
}

func TestListCompanyAlertsRejectsForeignCompany(t *testing.T) {
	f := newServerFixture(t)
	token := f.token(authdomain.RoleAdmin)

	rec := f.do(http.MethodGet, "/api/alerts/company/999", token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", errorType(t, decodeBody(t, rec)))
}

func TestBearerTokenParsing(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer abc"))
	assert.Equal(t, "", bearerToken("Basic abc"))
	assert.Equal(t, "", bearerToken(""))
	assert.Equal(t, "", bearerToken("Bearer "))
}
