package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	userdomain "github.com/smallbiznis/mindshift/internal/user/domain"
)

type syncUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

// SyncUser creates the caller on first sign-in and refreshes their
// identity fields afterwards.
func (s *Server) SyncUser(c *gin.Context) {
	var req syncUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.userSvc.EnsureUser(c.Request.Context(), userdomain.EnsureUserRequest{
		Email:    strings.TrimSpace(req.Email),
		Name:     strings.TrimSpace(req.Name),
		ImageURL: strings.TrimSpace(req.ImageURL),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetMe(c *gin.Context) {
	resp, err := s.userSvc.Me(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateSettings(c *gin.Context) {
	var req userdomain.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.userSvc.UpdateSettings(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateProfile(c *gin.Context) {
	var req userdomain.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.userSvc.UpdateProfile(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRank(c *gin.Context) {
	resp, err := s.userSvc.RankInfo(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetLeaderboard(c *gin.Context) {
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	resp, err := s.userSvc.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMyBadges(c *gin.Context) {
	ctx := c.Request.Context()
	userID, err := s.userSvc.Resolve(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.badgeSvc.List(ctx, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBadgeCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.badgeSvc.Catalog(c.Request.Context())})
}
