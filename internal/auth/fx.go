package auth

import (
	"github.com/Ethronics/ecosnap-sub001/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(service.NewService),
)
