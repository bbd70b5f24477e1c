package service

import (
	"context"
	"errors"
	"strings"
	"time"

	sensorconfigdomain "github.com/Ethronics/ecosnap-sub001/internal/sensorconfig/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	now   func() time.Time
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p ServiceParam) sensorconfigdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("sensorconfig.service"),
		genID: p.GenID,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Get(ctx context.Context, companyID snowflake.ID, domain string) (*sensorconfigdomain.SensorConfig, error) {
	if companyID == 0 {
		return nil, sensorconfigdomain.ErrInvalidCompany
	}
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return nil, sensorconfigdomain.ErrInvalidDomain
	}

	var cfg sensorconfigdomain.SensorConfig
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND domain = ?", companyID, domain).
		First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sensorconfigdomain.ErrNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

func (s *Service) Upsert(ctx context.Context, req sensorconfigdomain.UpsertRequest) (*sensorconfigdomain.SensorConfig, error) {
	if req.CompanyID == 0 {
		return nil, sensorconfigdomain.ErrInvalidCompany
	}
	req.Domain = strings.TrimSpace(req.Domain)
	if req.Domain == "" {
		return nil, sensorconfigdomain.ErrInvalidDomain
	}
	if !req.Parameters.Temperature.Valid() || !req.Parameters.Humidity.Valid() {
		return nil, sensorconfigdomain.ErrInvalidRange
	}

	now := s.now()
	cfg := sensorconfigdomain.SensorConfig{
		ID:                s.genID.Generate(),
		CompanyID:         req.CompanyID,
		Domain:            req.Domain,
		ThresholdTemp:     req.ThresholdTemp,
		ThresholdHumidity: req.ThresholdHumidity,
		Parameters:        req.Parameters,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "company_id"}, {Name: "domain"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"threshold_temp", "threshold_humidity", "parameters", "updated_at",
			}),
		}).
		Create(&cfg).Error
	if err != nil {
		return nil, err
	}

	s.log.Info("sensor config upserted",
		zap.String("company_id", req.CompanyID.String()),
		zap.String("domain", req.Domain),
	)
	return s.Get(ctx, req.CompanyID, req.Domain)
}

func (s *Service) ListByCompany(ctx context.Context, companyID snowflake.ID) ([]sensorconfigdomain.SensorConfig, error) {
	if companyID == 0 {
		return nil, sensorconfigdomain.ErrInvalidCompany
	}
	var cfgs []sensorconfigdomain.SensorConfig
	err := s.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("domain ASC").
		Find(&cfgs).Error
	if err != nil {
		return nil, err
	}
	return cfgs, nil
}
