package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	affirmationdomain "github.com/smallbiznis/mindshift/internal/affirmation/domain"
)

type createAffirmationRequest struct {
	OriginalThought      string   `json:"original_thought"`
	AffirmationText      string   `json:"affirmation_text"`
	DetectedLevel        *int     `json:"detected_level"`
	CognitiveDistortions []string `json:"cognitive_distortions"`
	ThemeCategory        string   `json:"theme_category"`
	ChosenLevel          *int     `json:"chosen_level"`
	UserEdited           bool     `json:"user_edited"`
}

type updateAffirmationRequest struct {
	AffirmationText string `json:"affirmation_text"`
}

func (s *Server) CreateAffirmation(c *gin.Context) {
	var req createAffirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.affirmationSvc.Create(c.Request.Context(), affirmationdomain.CreateRequest{
		OriginalThought:      req.OriginalThought,
		AffirmationText:      req.AffirmationText,
		DetectedLevel:        req.DetectedLevel,
		CognitiveDistortions: req.CognitiveDistortions,
		ThemeCategory:        req.ThemeCategory,
		ChosenLevel:          req.ChosenLevel,
		UserEdited:           req.UserEdited,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListAffirmations(c *gin.Context) {
	var query struct {
		Archived  string `form:"archived"`
		Query     string `form:"q"`
		PageToken string `form:"page_token"`
		PageSize  string `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	archived, err := parseOptionalBool(query.Archived)
	if err != nil {
		AbortWithError(c, newValidationError("archived", "invalid_archived", "invalid archived"))
		return
	}
	pageSize, err := parseOptionalInt(query.PageSize)
	if err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "invalid page size"))
		return
	}

	resp, err := s.affirmationSvc.List(c.Request.Context(), affirmationdomain.ListRequest{
		Archived:  archived,
		Query:     strings.TrimSpace(query.Query),
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  pageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      resp.Affirmations,
		"page_info": resp.PageInfo,
	})
}

func (s *Server) GetAffirmation(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.affirmationSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateAffirmation(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req updateAffirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.affirmationSvc.UpdateText(c.Request.Context(), affirmationdomain.UpdateTextRequest{
		ID:              id,
		AffirmationText: req.AffirmationText,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ArchiveAffirmation(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.affirmationSvc.Archive(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RestoreAffirmation(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.affirmationSvc.Restore(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteAffirmation(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.affirmationSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) GetTransformationCount(c *gin.Context) {
	resp, err := s.affirmationSvc.TransformationCount(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
