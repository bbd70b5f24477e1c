package server

import (
	"net/http"

	plandomain "github.com/Ethronics/ecosnap-sub001/internal/plan/domain"
	subscriptiondomain "github.com/Ethronics/ecosnap-sub001/internal/subscription/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func (s *Server) GetSubscription(c *gin.Context) {
	view, ok := s.companySubscription(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetSubscriptionStatus returns the derived snapshot fields without the
// full subscription row.
func (s *Server) GetSubscriptionStatus(c *gin.Context) {
	view, ok := s.companySubscription(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":              view.Status,
		"plan_name":           view.PlanName,
		"isActive":            view.IsActive,
		"expiresSoon":         view.ExpiresSoon,
		"daysUntilExpiration": view.DaysUntilExpiration,
	})
}

func (s *Server) RenewSubscription(c *gin.Context) {
	identity := s.identity(c)
	if identity == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	companyID, ok := s.pathCompanyID(c)
	if !ok {
		return
	}

	var body struct {
		PlanName string `json:"plan_name"`
	}
	// The body is optional; renewing without one keeps the current plan.
	_ = c.ShouldBindJSON(&body)

	req := subscriptiondomain.RenewRequest{CompanyID: companyID}
	if body.PlanName != "" {
		req.PlanName = plandomain.PlanName(body.PlanName)
	}

	view, err := s.subscriptionSvc.Renew(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) CancelSubscription(c *gin.Context) {
	companyID, ok := s.pathCompanyID(c)
	if !ok {
		return
	}

	view, err := s.subscriptionSvc.Cancel(c.Request.Context(), companyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) companySubscription(c *gin.Context) (subscriptiondomain.View, bool) {
	companyID, ok := s.pathCompanyID(c)
	if !ok {
		return subscriptiondomain.View{}, false
	}

	view, err := s.subscriptionSvc.GetByCompany(c.Request.Context(), companyID)
	if err != nil {
		AbortWithError(c, err)
		return subscriptiondomain.View{}, false
	}
	return view, true
}

// pathCompanyID parses the :companyId segment and enforces that callers
// only touch their own company.
func (s *Server) pathCompanyID(c *gin.Context) (snowflake.ID, bool) {
	identity := s.identity(c)
	if identity == nil {
		AbortWithError(c, ErrUnauthorized)
		return 0, false
	}

	companyID, err := snowflake.ParseString(c.Param("companyId"))
	if err != nil {
		AbortWithError(c, newValidationError("companyId", "invalid_company", "invalid company id"))
		return 0, false
	}
	if companyID != identity.CompanyID {
		AbortWithError(c, ErrForbidden)
		return 0, false
	}
	return companyID, true
}
