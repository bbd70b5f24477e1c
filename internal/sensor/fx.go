package sensor

import (
	"context"

	"github.com/Ethronics/ecosnap-sub001/internal/config"
	"github.com/Ethronics/ecosnap-sub001/internal/sensor/hub"
	"github.com/Ethronics/ecosnap-sub001/internal/sensor/ingest"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("sensor",
	fx.Provide(
		hub.NewHub,
		ingest.NewThresholdEvaluator,
		ingest.NewManager,
	),
	fx.Invoke(runIngest),
)

func runIngest(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, manager *ingest.Manager) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if cfg.MQTTBroker == "" {
				log.Named("sensor.ingest").Info("mqtt broker not configured, ingest disabled")
				return nil
			}
			// A failed first connect is not fatal; the manager keeps
			// retrying on its own timer.
			go func() {
				_ = manager.Connect()
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			manager.Disconnect()
			return nil
		},
	})
}
