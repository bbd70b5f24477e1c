package server

import (
	"errors"
	"net/http"

	sensorconfigdomain "github.com/Ethronics/ecosnap-sub001/internal/sensorconfig/domain"
	usagedomain "github.com/Ethronics/ecosnap-sub001/internal/usage/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) GetSensorConfig(c *gin.Context) {
	identity := s.identity(c)
	if identity == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	companyID := identity.CompanyID
	if raw := c.Query("company_id"); raw != "" {
		parsed, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("company_id", "invalid_company", "invalid company id"))
			return
		}
		if parsed != identity.CompanyID {
			AbortWithError(c, ErrForbidden)
			return
		}
		companyID = parsed
	}

	domain := c.Query("domain_id")
	if domain == "" {
		configs, err := s.sensorConfigSvc.ListByCompany(c.Request.Context(), companyID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"configs": configs})
		return
	}

	cfg, err := s.sensorConfigSvc.Get(c.Request.Context(), companyID, domain)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) UpsertSensorConfig(c *gin.Context) {
	identity := s.identity(c)
	if identity == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req sensorconfigdomain.UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.CompanyID = identity.CompanyID

	existing, err := s.sensorConfigSvc.Get(c.Request.Context(), req.CompanyID, req.Domain)
	isNewDomain := errors.Is(err, sensorconfigdomain.ErrNotFound) && existing == nil

	// Only a first config for a domain consumes the plan's domain
	// allowance; re-tuning an existing domain is always allowed.
	if isNewDomain {
		decision, err := s.usageSvc.Check(c.Request.Context(), identity.CompanyID, usagedomain.FeatureDomains, 0)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !decision.Allowed {
			s.abortFeatureLocked(c, decision)
			return
		}
	}

	cfg, err := s.sensorConfigSvc.Upsert(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if isNewDomain {
		if err := s.usageSvc.IncrementDomains(c.Request.Context(), identity.CompanyID); err != nil {
			s.log.Warn("domain counter update failed",
				zap.String("company_id", identity.CompanyID.String()),
				zap.Error(err),
			)
		}
	}

	c.JSON(http.StatusOK, cfg)
}
