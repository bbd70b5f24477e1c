package service

import (
	"context"
	"errors"
	"strings"

	companydomain "github.com/Ethronics/ecosnap-sub001/internal/company/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p ServiceParam) companydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("company.service"),
		genID: p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, req companydomain.CreateCompanyRequest) (*companydomain.Company, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, companydomain.ErrInvalidName
	}

	company := &companydomain.Company{
		ID:   s.genID.Generate(),
		Name: name,
		Slug: slug.Make(name),
	}
	if err := s.db.WithContext(ctx).Create(company).Error; err != nil {
		return nil, err
	}
	return company, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*companydomain.Company, error) {
	var company companydomain.Company
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&company).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, companydomain.ErrNotFound
		}
		return nil, err
	}
	return &company, nil
}
