package server

import (
	"net/http"

	paymentdomain "github.com/Ethronics/ecosnap-sub001/internal/payment/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreatePayment(c *gin.Context) {
	identity := s.identity(c)
	if identity == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req paymentdomain.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	// Payments are always recorded against the caller's own company.
	req.CompanyID = identity.CompanyID.String()

	payment, err := s.paymentSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

func (s *Server) ListCompanyPayments(c *gin.Context) {
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
	if companyID != identity.CompanyID {
		AbortWithError(c, ErrForbidden)
		return
	}

	payments, err := s.paymentSvc.ListByCompany(c.Request.Context(), companyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func (s *Server) ListAllPayments(c *gin.Context) {
	payments, err := s.paymentSvc.ListAll(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}
