package ingest

import (
	"context"
	"fmt"

	alertdomain "github.com/Ethronics/ecosnap-sub001/internal/alert/domain"
	sensordomain "github.com/Ethronics/ecosnap-sub001/internal/sensor/domain"
	sensorconfigdomain "github.com/Ethronics/ecosnap-sub001/internal/sensorconfig/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ThresholdEvaluator compares readings against every company's
// configured thresholds for the reading's domain and raises
// threshold_breach alerts on violation.
type ThresholdEvaluator struct {
	db     *gorm.DB
	log    *zap.Logger
	alerts alertdomain.Service
}

type ThresholdEvaluatorParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Alerts alertdomain.Service
}

func NewThresholdEvaluator(p ThresholdEvaluatorParam) Evaluator {
	return &ThresholdEvaluator{
		db:     p.DB,
		log:    p.Log.Named("sensor.threshold"),
		alerts: p.Alerts,
	}
}

func (e *ThresholdEvaluator) Evaluate(ctx context.Context, reading sensordomain.SensorReading) {
	if reading.Domain == "" {
		return
	}

	var configs []sensorconfigdomain.SensorConfig
	err := e.db.WithContext(ctx).
		Where("domain = ?", reading.Domain).
		Find(&configs).Error
	if err != nil {
		e.log.Warn("threshold lookup failed",
			zap.String("domain", reading.Domain),
			zap.Error(err),
		)
		return
	}

	for _, cfg := range configs {
		if reading.Temperature.Valid && reading.Temperature.Value > cfg.ThresholdTemp {
			e.raise(ctx, cfg, "temperature", reading.Temperature.Value, cfg.ThresholdTemp)
		}
		if reading.Humidity.Valid && reading.Humidity.Value > cfg.ThresholdHumidity {
			e.raise(ctx, cfg, "humidity", reading.Humidity.Value, cfg.ThresholdHumidity)
		}
	}
}

func (e *ThresholdEvaluator) raise(ctx context.Context, cfg sensorconfigdomain.SensorConfig, metric string, value, threshold float64) {
	_, err := e.alerts.Create(ctx, alertdomain.CreateAlertRequest{
		CompanyID: cfg.CompanyID,
		Type:      alertdomain.TypeThresholdBreach,
		Severity:  alertdomain.SeverityHigh,
		Title:     fmt.Sprintf("%s threshold breached", metric),
		Message:   fmt.Sprintf("%s reached %.2f, above the configured threshold of %.2f", metric, value, threshold),
		Domain:    cfg.Domain,
	})
	if err != nil {
		e.log.Warn("threshold alert failed",
			zap.String("company_id", cfg.CompanyID.String()),
			zap.String("metric", metric),
			zap.Error(err),
		)
	}
}
