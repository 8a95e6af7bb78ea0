package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	userdomain "github.com/smallbiznis/mindshift/internal/user/domain"
)

type updateSubscriptionRequest struct {
	Tier                 string     `json:"tier"`
	Status               string     `json:"status"`
	StripeCustomerID     string     `json:"stripe_customer_id"`
	StripeSubscriptionID string     `json:"stripe_subscription_id"`
	EndsAt               *time.Time `json:"ends_at"`
}

type awardBadgeRequest struct {
	BadgeType string `json:"badge_type"`
}

// UpdateSubscription applies a subscription change pushed by the billing
// integration.
func (s *Server) UpdateSubscription(c *gin.Context) {
	externalID := strings.TrimSpace(c.Param("externalId"))

	var req updateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.userSvc.UpdateSubscription(c.Request.Context(), externalID, userdomain.UpdateSubscriptionRequest{
		Tier:                 userdomain.SubscriptionTier(strings.ToLower(strings.TrimSpace(req.Tier))),
		Status:               req.Status,
		StripeCustomerID:     req.StripeCustomerID,
		StripeSubscriptionID: req.StripeSubscriptionID,
		EndsAt:               req.EndsAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AwardBadge(c *gin.Context) {
	externalID := strings.TrimSpace(c.Param("externalId"))

	var req awardBadgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	userID, err := s.userSvc.ResolveExternalID(ctx, externalID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.badgeSvc.Award(ctx, userID, req.BadgeType)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if resp.Awarded {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"data": resp})
}
