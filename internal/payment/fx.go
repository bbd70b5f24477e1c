package payment

import (
	"github.com/Ethronics/ecosnap-sub001/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(service.NewService),
)
