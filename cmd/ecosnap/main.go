package main

import (
	"github.com/Ethronics/ecosnap-sub001/internal/alert"
	"github.com/Ethronics/ecosnap-sub001/internal/auth"
	"github.com/Ethronics/ecosnap-sub001/internal/company"
	"github.com/Ethronics/ecosnap-sub001/internal/config"
	"github.com/Ethronics/ecosnap-sub001/internal/logger"
	"github.com/Ethronics/ecosnap-sub001/internal/migration"
	"github.com/Ethronics/ecosnap-sub001/internal/payment"
	"github.com/Ethronics/ecosnap-sub001/internal/ratelimit"
	"github.com/Ethronics/ecosnap-sub001/internal/sensor"
	"github.com/Ethronics/ecosnap-sub001/internal/sensorconfig"
	"github.com/Ethronics/ecosnap-sub001/internal/server"
	"github.com/Ethronics/ecosnap-sub001/internal/subscription"
	"github.com/Ethronics/ecosnap-sub001/internal/usage"
	"github.com/Ethronics/ecosnap-sub001/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,

		auth.Module,
		company.Module,
		subscription.Module,
		usage.Module,
		payment.Module,
		alert.Module,
		sensorconfig.Module,
		ratelimit.Module,
		sensor.Module,

		server.Module,
	)

	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, err
	}
	return node, nil
}
