package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	practicedomain "github.com/smallbiznis/mindshift/internal/practice/domain"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type submitPracticeRequest struct {
	AffirmationID   string `json:"affirmation_id"`
	Repetitions     int    `json:"repetitions"`
	DurationSeconds int    `json:"duration_seconds"`
	IdempotencyKey  string `json:"idempotency_key"`
}

// SubmitPractice records a practice session. The idempotency key may come
// from the body or the Idempotency-Key header; the body wins.
func (s *Server) SubmitPractice(c *gin.Context) {
	var req submitPracticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
	}
	affirmationID := strings.TrimSpace(req.AffirmationID)
	c.Set("affirmation_id", affirmationID)

	resp, err := s.practiceSvc.Submit(c.Request.Context(), practicedomain.SubmitRequest{
		AffirmationID:   affirmationID,
		Repetitions:     req.Repetitions,
		DurationSeconds: req.DurationSeconds,
		IdempotencyKey:  key,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"data": resp})
}

func (s *Server) GetTodayProgress(c *gin.Context) {
	resp, err := s.practiceSvc.TodayProgress(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetHistory(c *gin.Context) {
	days, err := parseOptionalInt(c.Query("days"))
	if err != nil {
		AbortWithError(c, newValidationError("days", "invalid_days", "invalid days"))
		return
	}

	resp, err := s.practiceSvc.History(c.Request.Context(), days)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetStats(c *gin.Context) {
	resp, err := s.practiceSvc.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
