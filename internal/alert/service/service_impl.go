package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	alertdomain "github.com/Ethronics/ecosnap-sub001/internal/alert/domain"
	authdomain "github.com/Ethronics/ecosnap-sub001/internal/auth/domain"
	usagedomain "github.com/Ethronics/ecosnap-sub001/internal/usage/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	usage usagedomain.Service
	now   func() time.Time
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Usage usagedomain.Service
}

func NewService(p ServiceParam) alertdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("alert.service"),
		genID: p.GenID,
		usage: p.Usage,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Create(ctx context.Context, req alertdomain.CreateAlertRequest) (*alertdomain.Alert, error) {
	if req.CompanyID == 0 {
		return nil, alertdomain.ErrInvalidCompany
	}
	if !req.Type.Valid() {
		return nil, alertdomain.ErrInvalidType
	}
	if !req.Severity.Valid() {
		return nil, alertdomain.ErrInvalidSeverity
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, alertdomain.ErrInvalidTitle
	}
	for _, role := range req.AudienceRoles {
		if !role.Valid() {
			return nil, authdomain.ErrInvalidRole
		}
	}

	var audience datatypes.JSON
	if len(req.AudienceRoles) > 0 {
		raw, err := json.Marshal(req.AudienceRoles)
		if err != nil {
			return nil, err
		}
		audience = raw
	}

	// Stored alerts count against the plan's storage allowance.
	sizeMB := payloadMB(req.Title, req.Message, audience)
	decision, err := s.usage.Check(ctx, req.CompanyID, usagedomain.FeatureData, sizeMB)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		s.log.Warn("alert dropped, storage allowance exhausted",
			zap.String("company_id", req.CompanyID.String()),
			zap.Float64("current_mb", decision.Current),
			zap.Float64("limit_mb", decision.Limit),
		)
		return nil, usagedomain.ErrLimitExceeded
	}

	now := s.now()
	alert := alertdomain.Alert{
		ID:            s.genID.Generate(),
		CompanyID:     req.CompanyID,
		UserID:        req.UserID,
		Type:          req.Type,
		Severity:      req.Severity,
		Status:        alertdomain.StatusNew,
		Title:         req.Title,
		Message:       req.Message,
		Domain:        req.Domain,
		AudienceRoles: audience,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.db.WithContext(ctx).Create(&alert).Error; err != nil {
		return nil, err
	}
	if err := s.usage.AddData(ctx, req.CompanyID, sizeMB); err != nil {
		s.log.Warn("storage counter update failed",
			zap.String("company_id", req.CompanyID.String()),
			zap.Error(err),
		)
	}

	s.log.Info("alert created",
		zap.String("company_id", req.CompanyID.String()),
		zap.String("type", string(req.Type)),
		zap.String("severity", string(req.Severity)),
	)
	return &alert, nil
}

// ListByCompany returns the company's alerts newest first. Audience
// filtering happens here rather than in SQL so sqlite and postgres
// behave identically for the JSON column.
func (s *Service) ListByCompany(ctx context.Context, companyID snowflake.ID, filter alertdomain.ListFilter) ([]alertdomain.Alert, error) {
	if companyID == 0 {
		return nil, alertdomain.ErrInvalidCompany
	}

	q := s.db.WithContext(ctx).Where("company_id = ?", companyID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var alerts []alertdomain.Alert
	if err := q.Order("created_at DESC").Find(&alerts).Error; err != nil {
		return nil, err
	}
	if filter.Role == "" {
		return alerts, nil
	}

	visible := alerts[:0]
	for _, a := range alerts {
		// An addressed alert is only for its recipient; the role
		// audience applies to the rest.
		if a.UserID != 0 {
			if a.UserID == filter.UserID {
				visible = append(visible, a)
			}
			continue
		}
		if audienceIncludes(a.AudienceRoles, filter.Role) {
			visible = append(visible, a)
		}
	}
	return visible, nil
}

func (s *Service) Acknowledge(ctx context.Context, companyID, alertID, userID snowflake.ID) (*alertdomain.Alert, error) {
	return s.transition(ctx, companyID, alertID, alertdomain.StatusAcknowledged, userID)
}

func (s *Service) Resolve(ctx context.Context, companyID, alertID, userID snowflake.ID) (*alertdomain.Alert, error) {
	return s.transition(ctx, companyID, alertID, alertdomain.StatusResolved, userID)
}

func (s *Service) transition(ctx context.Context, companyID, alertID snowflake.ID, next alertdomain.Status, userID snowflake.ID) (*alertdomain.Alert, error) {
	if companyID == 0 {
		return nil, alertdomain.ErrInvalidCompany
	}

	var alert alertdomain.Alert
	err := s.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", alertID, companyID).
		First(&alert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, alertdomain.ErrNotFound
		}
		return nil, err
	}
	if !alert.Status.CanTransition(next) {
		return nil, alertdomain.ErrInvalidTransition
	}

	now := s.now()
	updates := map[string]any{"status": next, "updated_at": now}
	switch next {
	case alertdomain.StatusAcknowledged:
		updates["acknowledged_by"] = userID
		updates["acknowledged_at"] = now
		alert.AcknowledgedBy = userID
		alert.AcknowledgedAt = &now
	case alertdomain.StatusResolved:
		updates["resolved_by"] = userID
		updates["resolved_at"] = now
		alert.ResolvedBy = userID
		alert.ResolvedAt = &now
	}
	if err := s.db.WithContext(ctx).
		Model(&alertdomain.Alert{}).
		Where("id = ?", alert.ID).
		Updates(updates).Error; err != nil {
		return nil, err
	}

	alert.Status = next
	alert.UpdatedAt = now
	return &alert, nil
}

// payloadMB is the stored size of an alert's variable-length fields.
func payloadMB(title, message string, audience datatypes.JSON) float64 {
	return float64(len(title)+len(message)+len(audience)) / (1 << 20)
}

// audienceIncludes reports whether the role may see an alert with the
// given audience list. An empty or unparseable audience is visible to all.
func audienceIncludes(audience datatypes.JSON, role authdomain.Role) bool {
	if len(audience) == 0 {
		return true
	}
	var roles []authdomain.Role
	if err := json.Unmarshal(audience, &roles); err != nil || len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
