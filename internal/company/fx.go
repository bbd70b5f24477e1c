package company

import (
	"github.com/Ethronics/ecosnap-sub001/internal/company/service"
	"go.uber.org/fx"
)

var Module = fx.Module("company.service",
	fx.Provide(service.NewService),
)
