package server

import (
	"net/http"

	alertdomain "github.com/Ethronics/ecosnap-sub001/internal/alert/domain"
	authdomain "github.com/Ethronics/ecosnap-sub001/internal/auth/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListCompanyAlerts(c *gin.Context) {
	identity := s.identity(c)
	if identity == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	companyID, err := snowflake.ParseString(c.Param("companyId"))
	if err != nil {
		AbortWithError(c, newValidationError("companyId", "invalid_company", "invalid company id"))
		return
	}
	// Callers only see their own company's alerts.
	if companyID != identity.CompanyID {
		AbortWithError(c, ErrForbidden)
		return
	}

	filter := alertdomain.ListFilter{Role: identity.Role, UserID: identity.UserID}
	// Admins see everything regardless of audience.
	if identity.Role == authdomain.RoleAdmin {
		filter.Role = ""
	}
	if status := c.Query("status"); status != "" {
		filter.Status = alertdomain.Status(status)
	}

	alerts, err := s.alertSvc.ListByCompany(c.Request.Context(), companyID, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

func (s *Server) AcknowledgeAlert(c *gin.Context) {
	s.transitionAlert(c, alertdomain.StatusAcknowledged)
}

func (s *Server) ResolveAlert(c *gin.Context) {
	s.transitionAlert(c, alertdomain.StatusResolved)
}

func (s *Server) transitionAlert(c *gin.Context, next alertdomain.Status) {
	identity := s.identity(c)
	if identity == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	alertID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_alert_id", "invalid alert id"))
		return
	}

	var alert *alertdomain.Alert
	switch next {
	case alertdomain.StatusAcknowledged:
		alert, err = s.alertSvc.Acknowledge(c.Request.Context(), identity.CompanyID, alertID, identity.UserID)
	case alertdomain.StatusResolved:
		alert, err = s.alertSvc.Resolve(c.Request.Context(), identity.CompanyID, alertID, identity.UserID)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}
