package migration

import (
	alertdomain "github.com/Ethronics/ecosnap-sub001/internal/alert/domain"
	authdomain "github.com/Ethronics/ecosnap-sub001/internal/auth/domain"
	companydomain "github.com/Ethronics/ecosnap-sub001/internal/company/domain"
	"github.com/Ethronics/ecosnap-sub001/internal/config"
	paymentdomain "github.com/Ethronics/ecosnap-sub001/internal/payment/domain"
	plandomain "github.com/Ethronics/ecosnap-sub001/internal/plan/domain"
	"github.com/Ethronics/ecosnap-sub001/internal/seed"
	sensorconfigdomain "github.com/Ethronics/ecosnap-sub001/internal/sensorconfig/domain"
	subscriptiondomain "github.com/Ethronics/ecosnap-sub001/internal/subscription/domain"
	usagedomain "github.com/Ethronics/ecosnap-sub001/internal/usage/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, genID *snowflake.Node) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite has no migration driver wired; let gorm build the
			// schema from the models instead.
			if err := conn.AutoMigrate(
				&companydomain.Company{},
				&authdomain.User{},
				&authdomain.Session{},
				&plandomain.Plan{},
				&subscriptiondomain.Subscription{},
				&usagedomain.Usage{},
				&paymentdomain.Payment{},
				&alertdomain.Alert{},
				&sensorconfigdomain.SensorConfig{},
			); err != nil {
				return err
			}
		}

		if err := seed.EnsurePlans(conn, genID); err != nil {
			return err
		}
		return seed.EnsureBootstrap(conn, genID, cfg)
	}),
)
