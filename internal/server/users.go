package server

import (
	"net/http"

	authdomain "github.com/Ethronics/ecosnap-sub001/internal/auth/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) ListUsers(c *gin.Context) {
	users, err := s.authsvc.ListUsers(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (s *Server) CreateUser(c *gin.Context) {
	identity := s.identity(c)
	if identity == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req authdomain.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	// Users are always created inside the caller's company.
	req.CompanyID = identity.CompanyID.String()

	user, err := s.authsvc.CreateUser(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.usageSvc.IncrementEmployees(c.Request.Context(), identity.CompanyID); err != nil {
		s.log.Warn("employee counter update failed",
			zap.String("company_id", identity.CompanyID.String()),
			zap.Error(err),
		)
	}

	c.JSON(http.StatusCreated, user)
}
