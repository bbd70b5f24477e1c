package usage

import (
	"github.com/Ethronics/ecosnap-sub001/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.service",
	fx.Provide(service.NewService),
)
