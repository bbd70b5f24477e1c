package server

import (
	"errors"
	"net/http"

	plandomain "github.com/Ethronics/ecosnap-sub001/internal/plan/domain"
	subscriptiondomain "github.com/Ethronics/ecosnap-sub001/internal/subscription/domain"
	usagedomain "github.com/Ethronics/ecosnap-sub001/internal/usage/domain"
	"github.com/gin-gonic/gin"
)

const (
	pricingExpiredPath = "/pricing?expired=true"
	pricingUpgradePath = "/pricing?upgrade=true"

	headerSubscriptionWarning = "X-Subscription-Warning"
)

// SubscriptionGuard checks the caller's subscription on every request.
// Expired subscriptions get a short grace window advertised in the
// response before clients redirect to pricing; an insufficient plan tier
// redirects straight to the upgrade page.
func (s *Server) SubscriptionGuard(minPlan plandomain.PlanName) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := s.identity(c)
		if identity == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		view, err := s.subscriptionSvc.GetByCompany(c.Request.Context(), identity.CompanyID)
		if err != nil {
			if errors.Is(err, subscriptiondomain.ErrNotFound) {
				s.abortUpgradeRequired(c, minPlan)
				return
			}
			AbortWithError(c, err)
			return
		}

		if !view.IsActive {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error": errorPayload{
					Type:    "subscription_expired",
					Message: "subscription expired",
				},
				"status":        "expired",
				"grace_seconds": int(s.cfg.SubscriptionGrace.Seconds()),
				"redirect":      pricingExpiredPath,
			})
			return
		}

		if !view.PlanName.AtLeast(minPlan) {
			s.abortUpgradeRequired(c, minPlan)
			return
		}

		if view.ExpiresSoon {
			c.Header(headerSubscriptionWarning, "expires_soon")
		}
		c.Next()
	}
}

func (s *Server) abortUpgradeRequired(c *gin.Context, minPlan plandomain.PlanName) {
	c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
		"error": errorPayload{
			Type:    "upgrade_required",
			Message: "plan does not include this feature",
		},
		"required_plan": minPlan,
		"redirect":      pricingUpgradePath,
	})
}

// UsageGuard blocks the request when the feature's counter has reached
// the plan limit. The payload names the limit hit so clients can show a
// targeted upgrade prompt instead of a generic error.
func (s *Server) UsageGuard(feature usagedomain.Feature) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := s.identity(c)
		if identity == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		decision, err := s.usageSvc.Check(c.Request.Context(), identity.CompanyID, feature, 0)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !decision.Allowed {
			s.abortFeatureLocked(c, decision)
			return
		}
		c.Next()
	}
}

// RequestQuota consumes one daily request. The usage row is the
// authority; the redis counter fronts it so bursts across instances are
// caught without a database round trip on every retry.
func (s *Server) RequestQuota() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := s.identity(c)
		if identity == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		decision, err := s.usageSvc.RecordRequest(c.Request.Context(), identity.CompanyID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !decision.Allowed {
			s.abortFeatureLocked(c, decision)
			return
		}

		if s.limiter != nil {
			allowed, err := s.limiter.Allow(c.Request.Context(), identity.CompanyID, int64(decision.Limit))
			if err == nil && !allowed {
				s.abortFeatureLocked(c, decision)
				return
			}
		}
		c.Next()
	}
}

func (s *Server) abortFeatureLocked(c *gin.Context, decision usagedomain.Decision) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"error": errorPayload{
			Type:    "feature_locked",
			Message: decision.Message,
		},
		"feature":  decision.Feature,
		"current":  decision.Current,
		"limit":    decision.Limit,
		"redirect": pricingUpgradePath,
	})
}
