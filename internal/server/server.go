// Package server wires the HTTP surface: REST routes, guard middleware
// and the WebSocket sensor relay.
package server

import (
	"context"
	"net/http"
	"time"

	alertdomain "github.com/Ethronics/ecosnap-sub001/internal/alert/domain"
	authdomain "github.com/Ethronics/ecosnap-sub001/internal/auth/domain"
	companydomain "github.com/Ethronics/ecosnap-sub001/internal/company/domain"
	"github.com/Ethronics/ecosnap-sub001/internal/config"
	paymentdomain "github.com/Ethronics/ecosnap-sub001/internal/payment/domain"
	plandomain "github.com/Ethronics/ecosnap-sub001/internal/plan/domain"
	"github.com/Ethronics/ecosnap-sub001/internal/ratelimit"
	"github.com/Ethronics/ecosnap-sub001/internal/sensor/hub"
	sensorconfigdomain "github.com/Ethronics/ecosnap-sub001/internal/sensorconfig/domain"
	subscriptiondomain "github.com/Ethronics/ecosnap-sub001/internal/subscription/domain"
	usagedomain "github.com/Ethronics/ecosnap-sub001/internal/usage/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewHTTPMetrics),
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, metrics *HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(MetricsMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, metrics *HTTPMetrics) *gin.Engine {
	return NewEngine(log, metrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	db              *gorm.DB
	genID           *snowflake.Node
	authsvc         authdomain.Service
	companySvc      companydomain.Service
	subscriptionSvc subscriptiondomain.Service
	usageSvc        usagedomain.Service
	paymentSvc      paymentdomain.Service
	alertSvc        alertdomain.Service
	sensorConfigSvc sensorconfigdomain.Service
	sensorHub       *hub.Hub
	limiter         *ratelimit.Limiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	DB              *gorm.DB
	GenID           *snowflake.Node
	Authsvc         authdomain.Service
	CompanySvc      companydomain.Service
	SubscriptionSvc subscriptiondomain.Service
	UsageSvc        usagedomain.Service
	PaymentSvc      paymentdomain.Service
	AlertSvc        alertdomain.Service
	SensorConfigSvc sensorconfigdomain.Service
	SensorHub       *hub.Hub
	Limiter         *ratelimit.Limiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		db:              p.DB,
		genID:           p.GenID,
		authsvc:         p.Authsvc,
		companySvc:      p.CompanySvc,
		subscriptionSvc: p.SubscriptionSvc,
		usageSvc:        p.UsageSvc,
		paymentSvc:      p.PaymentSvc,
		alertSvc:        p.AlertSvc,
		sensorConfigSvc: p.SensorConfigSvc,
		sensorHub:       p.SensorHub,
		limiter:         p.Limiter,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerRealtimeRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.Login)
	auth.POST("/logout", s.AuthRequired(), s.Logout)
	auth.GET("/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// Listing users is deliberately public; creation is not.
	api.GET("/users/all", s.ListUsers)
	api.POST("/users/create",
		s.AuthRequired(),
		s.RequireRole(authdomain.RoleAdmin, authdomain.RoleManager),
		s.UsageGuard(usagedomain.FeatureEmployees),
		s.CreateUser,
	)

	// -------- Alerts --------
	alerts := api.Group("/alerts", s.AuthRequired(), s.RequestQuota())
	alerts.GET("/company/:companyId", s.ListCompanyAlerts)
	alerts.POST("/:id/acknowledge", s.AcknowledgeAlert)
	alerts.POST("/:id/resolve", s.ResolveAlert)

	// -------- Sensor config --------
	cfg := api.Group("/config", s.AuthRequired(), s.RequestQuota())
	cfg.GET("/update", s.GetSensorConfig)
	cfg.PUT("/update",
		s.RequireRole(authdomain.RoleAdmin, authdomain.RoleManager),
		s.SubscriptionGuard(plandomain.PlanPro),
		s.UpsertSensorConfig,
	)

	// -------- Payments --------
	payments := api.Group("/payments", s.AuthRequired())
	payments.POST("/create", s.CreatePayment)
	payments.GET("/company/:companyId", s.ListCompanyPayments)
	payments.GET("", s.RequireRole(authdomain.RoleAdmin), s.ListAllPayments)

	// -------- Subscriptions --------
	subs := api.Group("/subscriptions", s.AuthRequired())
	subs.GET("/:companyId", s.GetSubscription)
	subs.GET("/:companyId/status", s.GetSubscriptionStatus)
	subs.PUT("/:companyId/renew", s.RequireRole(authdomain.RoleAdmin, authdomain.RoleManager), s.RenewSubscription)
	subs.PUT("/:companyId/cancel", s.RequireRole(authdomain.RoleAdmin), s.CancelSubscription)

	// -------- Sensors --------
	sensors := api.Group("/sensors", s.AuthRequired(), s.SubscriptionGuard(plandomain.PlanFree), s.RequestQuota())
	sensors.GET("/current", s.CurrentReading)
	sensors.GET("/status", s.ConnectionStatus)
}

func (s *Server) registerRealtimeRoutes() {
	s.engine.GET("/ws/sensors", s.AuthRequired(), s.SubscriptionGuard(plandomain.PlanFree), s.SensorStream)
}
