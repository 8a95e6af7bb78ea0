package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	affirmationdomain "github.com/smallbiznis/mindshift/internal/affirmation/domain"
	affirmationrepo "github.com/smallbiznis/mindshift/internal/affirmation/repository"
	affirmationservice "github.com/smallbiznis/mindshift/internal/affirmation/service"
	badgedomain "github.com/smallbiznis/mindshift/internal/badge/domain"
	badgerepo "github.com/smallbiznis/mindshift/internal/badge/repository"
	"github.com/smallbiznis/mindshift/internal/badge/rules"
	badgeservice "github.com/smallbiznis/mindshift/internal/badge/service"
	"github.com/smallbiznis/mindshift/internal/cache"
	"github.com/smallbiznis/mindshift/internal/clock"
	"github.com/smallbiznis/mindshift/internal/config"
	"github.com/smallbiznis/mindshift/internal/observability"
	practicedomain "github.com/smallbiznis/mindshift/internal/practice/domain"
	practicerepo "github.com/smallbiznis/mindshift/internal/practice/repository"
	practiceservice "github.com/smallbiznis/mindshift/internal/practice/service"
	userdomain "github.com/smallbiznis/mindshift/internal/user/domain"
	userrepo "github.com/smallbiznis/mindshift/internal/user/repository"
	userservice "github.com/smallbiznis/mindshift/internal/user/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testSecret        = "test-secret"
	testIssuer        = "https://auth.example.com"
	testInternalToken = "internal-token"
)

type envelope struct {
	Data     json.RawMessage `json:"data"`
	PageInfo json.RawMessage `json:"page_info"`
	Error    errorPayload    `json:"error"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(
		&userdomain.User{},
		&affirmationdomain.Affirmation{},
		&practicedomain.Practice{},
		&practicedomain.Submission{},
		&badgedomain.Badge{},
	))

	cfg := config.Config{
		TimeZone:             "UTC",
		AuthJWTSecret:        testSecret,
		AuthJWTIssuer:        testIssuer,
		InternalAPIToken:     testInternalToken,
		FreeAffirmationLimit: 2,
	}
	log := zap.NewNop()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	resolver, err := cache.NewUserResolverCache(16)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))
	catalog := rules.NewCatalog(rules.CatalogParams{Log: log})

	users := userservice.New(userservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk,
		Repo:  userrepo.Provide(),
		Cache: resolver,
	})
	affirmations := affirmationservice.New(affirmationservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Config: cfg,
		Repo:     affirmationrepo.Provide(),
		UserRepo: userrepo.Provide(),
		UserSvc:  users,
	})
	badges := badgeservice.New(badgeservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk,
		Repo:    badgerepo.Provide(),
		Catalog: catalog,
	})
	practices, err := practiceservice.New(practiceservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Config: cfg,
		Repo:            practicerepo.Provide(),
		UserRepo:        userrepo.Provide(),
		UserSvc:         users,
		AffirmationRepo: affirmationrepo.Provide(),
		BadgeRepo:       badgerepo.Provide(),
		Catalog:         catalog,
	})
	require.NoError(t, err)

	return NewServer(ServerParams{
		Gin:            NewEngine(observability.Config{}, nil),
		Cfg:            cfg,
		Log:            log,
		UserSvc:        users,
		AffirmationSvc: affirmations,
		BadgeSvc:       badges,
		PracticeSvc:    practices,
	})
}

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func do(t *testing.T, s *Server, method, path, token string, body any, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, _ := do(t, s, http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUserAuthRequired(t *testing.T) {
	s := newTestServer(t)

	w, env := do(t, s, http.MethodGet, "/api/v1/me", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", env.Error.Type)

	w, _ = do(t, s, http.MethodGet, "/api/v1/me", signToken(t, "other-secret", "ext_1"), nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(t, s, http.MethodGet, "/api/v1/me", "not-a-jwt", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// A valid token for a user that never synced.
	w, env = do(t, s, http.MethodGet, "/api/v1/me", signToken(t, testSecret, "ext_unknown"), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", env.Error.Type)
}

func TestPracticeFlow(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, testSecret, "ext_1")

	w, _ := do(t, s, http.MethodPost, "/api/v1/users/sync", token, map[string]any{"email": "ext_1@example.com", "name": "Ada"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env := do(t, s, http.MethodPost, "/api/v1/affirmations", token, map[string]any{
		"original_thought": "I always fail",
		"affirmation_text": "I learn from every attempt",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotEmpty(t, created.ID)

	submit := map[string]any{"affirmation_id": created.ID, "repetitions": 10, "duration_seconds": 90}
	headers := map[string]string{HeaderIdempotencyKey: "session-1"}

	w, env = do(t, s, http.MethodPost, "/api/v1/practices", token, submit, headers)
	require.Equal(t, http.StatusCreated, w.Code)
	var result struct {
		XPEarned    int64  `json:"xp_earned"`
		NewLevel    int    `json:"new_level"`
		Celebration string `json:"celebration"`
		Replayed    bool   `json:"replayed"`
		NewBadges   []struct {
			ID string `json:"id"`
		} `json:"new_badges"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, int64(65), result.XPEarned)
	assert.Equal(t, 3, result.NewLevel)
	assert.Equal(t, "levelUp", result.Celebration)
	assert.Len(t, result.NewBadges, 2)
	assert.False(t, result.Replayed)

	w, env = do(t, s, http.MethodPost, "/api/v1/practices", token, submit, headers)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.Replayed)

	w, env = do(t, s, http.MethodGet, "/api/v1/me/stats", token, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		TotalXP        int64 `json:"total_xp"`
		TotalPractices int64 `json:"total_practices"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, int64(65), stats.TotalXP)
	assert.Equal(t, int64(1), stats.TotalPractices)

	w, env = do(t, s, http.MethodGet, "/api/v1/me/badges", token, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var earned []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &earned))
	assert.Len(t, earned, 2)

	w, _ = do(t, s, http.MethodGet, "/api/v1/me/history?days=7", token, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, env = do(t, s, http.MethodGet, "/api/v1/me/history?days=abc", token, nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", env.Error.Type)
}

func TestPracticeValidationErrors(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, testSecret, "ext_1")
	w, _ := do(t, s, http.MethodPost, "/api/v1/users/sync", token, map[string]any{"email": "ext_1@example.com"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env := do(t, s, http.MethodPost, "/api/v1/practices", token, map[string]any{"affirmation_id": "123", "repetitions": 0}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, env.Error.Errors, 1)
	assert.Equal(t, "invalid_repetitions", env.Error.Errors[0].Code)
	assert.Equal(t, "repetitions", env.Error.Errors[0].Field)

	w, env = do(t, s, http.MethodPost, "/api/v1/practices", token, map[string]any{"affirmation_id": "123", "repetitions": 1}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", env.Error.Type)
}

func TestFreeTierLimitIsForbidden(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, testSecret, "ext_1")
	w, _ := do(t, s, http.MethodPost, "/api/v1/users/sync", token, map[string]any{"email": "ext_1@example.com"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := map[string]any{"original_thought": "t", "affirmation_text": "a"}
	for i := 0; i < 2; i++ {
		w, _ = do(t, s, http.MethodPost, "/api/v1/affirmations", token, body, nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w, env := do(t, s, http.MethodPost, "/api/v1/affirmations", token, body, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, affirmationdomain.ErrFreeTierLimit.Error(), env.Error.Message)

	w, env = do(t, s, http.MethodGet, "/api/v1/affirmations?page_size=1", token, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Len(t, items, 1)
	assert.Contains(t, string(env.PageInfo), `"has_more":true`)
}

func TestInternalSubscriptionRoute(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, testSecret, "ext_1")
	w, _ := do(t, s, http.MethodPost, "/api/v1/users/sync", token, map[string]any{"email": "ext_1@example.com"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := map[string]any{"tier": "pro", "status": "active"}
	w, _ = do(t, s, http.MethodPut, "/internal/users/ext_1/subscription", "", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(t, s, http.MethodPut, "/internal/users/ext_1/subscription", "", body, map[string]string{HeaderInternalToken: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	auth := map[string]string{HeaderInternalToken: testInternalToken}
	w, env := do(t, s, http.MethodPut, "/internal/users/ext_1/subscription", "", body, auth)
	require.Equal(t, http.StatusOK, w.Code)
	var user struct {
		SubscriptionTier string `json:"subscription_tier"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "pro", user.SubscriptionTier)

	w, _ = do(t, s, http.MethodPut, "/internal/users/ext_1/subscription", "", map[string]any{"tier": "platinum"}, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, s, http.MethodPost, "/internal/users/ext_1/badges", "", map[string]any{"badge_type": "legend"}, auth)
	assert.Equal(t, http.StatusCreated, w.Code)
	w, _ = do(t, s, http.MethodPost, "/internal/users/ext_1/badges", "", map[string]any{"badge_type": "legend"}, auth)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, s, http.MethodPost, "/internal/users/ext_missing/badges", "", map[string]any{"badge_type": "legend"}, auth)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	w, env := do(t, s, http.MethodGet, "/nope", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", env.Error.Type)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{err: practicedomain.ErrInvalidDuration, status: http.StatusBadRequest},
		{err: userdomain.ErrUnauthorized, status: http.StatusUnauthorized},
		{err: userdomain.ErrUsernameRequiresPro, status: http.StatusForbidden},
		{err: affirmationdomain.ErrNotFound, status: http.StatusNotFound},
		{err: userdomain.ErrUsernameTaken, status: http.StatusConflict},
		{err: practicedomain.ErrTooManyRequests, status: http.StatusTooManyRequests},
		{err: fmt.Errorf("%w: deadlock", practicedomain.ErrRetryable), status: http.StatusServiceUnavailable},
		{err: practicedomain.ErrBusy, status: http.StatusServiceUnavailable},
		{err: errors.New("boom"), status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, _ := mapError(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
	}

	typ, code := classifyErrorForLog(practicedomain.ErrInvalidRepetitions)
	assert.Equal(t, "validation_error", typ)
	assert.Equal(t, "invalid_repetitions", code)
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, "1", retryAfterSeconds(0))
	assert.Equal(t, "1", retryAfterSeconds(200*time.Millisecond))
	assert.Equal(t, "3", retryAfterSeconds(2100*time.Millisecond))
}
