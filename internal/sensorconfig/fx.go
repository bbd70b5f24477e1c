package sensorconfig

import (
	"github.com/Ethronics/ecosnap-sub001/internal/sensorconfig/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sensorconfig.service",
	fx.Provide(service.NewService),
)
