package server

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	obscontext "github.com/smallbiznis/mindshift/internal/observability/context"
	"github.com/smallbiznis/mindshift/internal/usercontext"
	"go.uber.org/zap"
)

const HeaderInternalToken = "X-Internal-Token"

var errInvalidToken = errors.New("invalid_token")

// UserAuthRequired verifies the bearer JWT issued by the identity provider
// and binds its subject as the external user id.
func (s *Server) UserAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		subject, err := s.parseSubject(raw)
		if err != nil {
			s.log.Debug("rejected bearer token", zap.Error(err))
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := usercontext.WithExternalID(c.Request.Context(), subject)
		ctx = obscontext.WithUserID(ctx, subject)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// InternalTokenRequired guards service-to-service routes. An unset token
// disables them.
func (s *Server) InternalTokenRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := strings.TrimSpace(s.cfg.InternalAPIToken)
		got := strings.TrimSpace(c.GetHeader(HeaderInternalToken))
		if expected == "" || got == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(got)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func (s *Server) parseSubject(raw string) (string, error) {
	secret := s.cfg.AuthJWTSecret
	if secret == "" {
		return "", errInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer := strings.TrimSpace(s.cfg.AuthJWTIssuer); issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return []byte(secret), nil
	}, opts...)
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || strings.TrimSpace(subject) == "" {
		return "", errInvalidToken
	}
	return strings.TrimSpace(subject), nil
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(strings.TrimSpace(header))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
