package alert

import (
	"github.com/Ethronics/ecosnap-sub001/internal/alert/service"
	"go.uber.org/fx"
)

var Module = fx.Module("alert.service",
	fx.Provide(service.NewService),
)
