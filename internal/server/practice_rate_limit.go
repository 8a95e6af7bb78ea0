package server

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/mindshift/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/mindshift/internal/observability/metrics"
	"github.com/smallbiznis/mindshift/internal/usercontext"
	"go.uber.org/zap"
)

const rateLimitReasonUserRate = "user-rate"

// PracticeRateLimit resolves the caller and spends one token of their
// submission bucket. The resolved user id is kept on the request context so
// the handler does not look it up again.
func (s *Server) PracticeRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID, err := s.userSvc.Resolve(ctx)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		ctx = usercontext.WithUserID(ctx, userID)
		c.Request = c.Request.WithContext(ctx)

		if !s.practiceGuard.RateLimited() {
			c.Next()
			return
		}

		endpoint := normalizeRateLimitEndpoint(c)
		res, err := s.practiceGuard.Allow(ctx, userID.String())
		if err != nil {
			logger.FromContext(ctx).Warn("practice rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !res.Allowed {
			denyPracticeRateLimit(c, endpoint, rateLimitReasonUserRate, res.RetryAfter, s.obsMetrics)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Next()
	}
}

func denyPracticeRateLimit(c *gin.Context, endpoint, reason string, retryAfter time.Duration, metrics *obsmetrics.Metrics) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("practice rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	recordRateLimitDenied(ctx, endpoint, reason, metrics)

	c.Header("Retry-After", retryAfterSeconds(retryAfter))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func recordRateLimitDenied(ctx context.Context, endpoint, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, endpoint, reason)
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
