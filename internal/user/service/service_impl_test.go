package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/mindshift/internal/cache"
	"github.com/smallbiznis/mindshift/internal/clock"
	"github.com/smallbiznis/mindshift/internal/user/domain"
	"github.com/smallbiznis/mindshift/internal/user/repository"
	"github.com/smallbiznis/mindshift/internal/usercontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupUserService(t *testing.T) (domain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&domain.User{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	resolver, err := cache.NewUserResolverCache(16)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
		Cache: resolver,
	})
	return svc, db, clk
}

func asUser(externalID string) context.Context {
	return usercontext.WithExternalID(context.Background(), externalID)
}

func TestEnsureUserCreatesWithDefaults(t *testing.T) {
	svc, _, _ := setupUserService(t)

	user, err := svc.EnsureUser(asUser("ext_1"), domain.EnsureUserRequest{Email: "a@example.com", Name: "Ana"})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, 1, user.Level)
	assert.Equal(t, int64(0), user.TotalXP)
	assert.Equal(t, 1, user.DailyPracticeGoal)
	assert.Equal(t, "09:00", user.ReminderTime)
	assert.True(t, user.AnonymousMode)
	assert.Equal(t, domain.TierFree, user.SubscriptionTier)

	again, err := svc.EnsureUser(asUser("ext_1"), domain.EnsureUserRequest{Email: "new@example.com", Name: "Ana B"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, "new@example.com", again.Email)
	assert.Equal(t, "Ana B", again.Name)
}

func TestEnsureUserValidation(t *testing.T) {
	svc, _, _ := setupUserService(t)

	_, err := svc.EnsureUser(context.Background(), domain.EnsureUserRequest{Email: "a@example.com"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.EnsureUser(asUser("ext_1"), domain.EnsureUserRequest{Email: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestUpdateSettings(t *testing.T) {
	svc, _, _ := setupUserService(t)
	ctx := asUser("ext_1")
	_, err := svc.EnsureUser(ctx, domain.EnsureUserRequest{Email: "a@example.com"})
	require.NoError(t, err)

	goal := 3
	enabled := true
	reminder := "07:30"
	anonymous := false
	user, err := svc.UpdateSettings(ctx, domain.UpdateSettingsRequest{
		DailyPracticeGoal: &goal,
		ReminderEnabled:   &enabled,
		ReminderTime:      &reminder,
		AnonymousMode:     &anonymous,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, user.DailyPracticeGoal)
	assert.True(t, user.ReminderEnabled)
	assert.Equal(t, "07:30", user.ReminderTime)
	assert.False(t, user.AnonymousMode)

	zero := 0
	_, err = svc.UpdateSettings(ctx, domain.UpdateSettingsRequest{DailyPracticeGoal: &zero})
	assert.ErrorIs(t, err, domain.ErrInvalidDailyGoal)

	bad := "25:00"
	_, err = svc.UpdateSettings(ctx, domain.UpdateSettingsRequest{ReminderTime: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidReminderTime)
}

func TestUpdateProfileUsername(t *testing.T) {
	svc, _, _ := setupUserService(t)
	ctxA := asUser("ext_a")
	ctxB := asUser("ext_b")
	_, err := svc.EnsureUser(ctxA, domain.EnsureUserRequest{Email: "a@example.com"})
	require.NoError(t, err)
	_, err = svc.EnsureUser(ctxB, domain.EnsureUserRequest{Email: "b@example.com"})
	require.NoError(t, err)

	name := "Calm Mind"
	_, err = svc.UpdateProfile(ctxA, domain.UpdateProfileRequest{Username: &name})
	assert.ErrorIs(t, err, domain.ErrUsernameRequiresPro)

	_, err = svc.UpdateSubscription(context.Background(), "ext_a", domain.UpdateSubscriptionRequest{Tier: domain.TierPro, Status: "active"})
	require.NoError(t, err)
	_, err = svc.UpdateSubscription(context.Background(), "ext_b", domain.UpdateSubscriptionRequest{Tier: domain.TierElite})
	require.NoError(t, err)

	user, err := svc.UpdateProfile(ctxA, domain.UpdateProfileRequest{Username: &name})
	require.NoError(t, err)
	require.NotNil(t, user.Username)
	assert.Equal(t, "calm-mind", *user.Username)

	_, err = svc.UpdateProfile(ctxB, domain.UpdateProfileRequest{Username: &name})
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)

	short := "x"
	_, err = svc.UpdateProfile(ctxB, domain.UpdateProfileRequest{Username: &short})
	assert.ErrorIs(t, err, domain.ErrInvalidUsername)

	empty := ""
	user, err = svc.UpdateProfile(ctxA, domain.UpdateProfileRequest{Username: &empty})
	require.NoError(t, err)
	assert.Nil(t, user.Username)
}

func TestUpdateSubscriptionRejectsUnknownTier(t *testing.T) {
	svc, _, _ := setupUserService(t)
	_, err := svc.EnsureUser(asUser("ext_1"), domain.EnsureUserRequest{Email: "a@example.com"})
	require.NoError(t, err)

	_, err = svc.UpdateSubscription(context.Background(), "ext_1", domain.UpdateSubscriptionRequest{Tier: "platinum"})
	assert.ErrorIs(t, err, domain.ErrInvalidSubscriptionTier)

	_, err = svc.UpdateSubscription(context.Background(), "missing", domain.UpdateSubscriptionRequest{Tier: domain.TierPro})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLeaderboardAndRankInfo(t *testing.T) {
	svc, db, _ := setupUserService(t)

	xps := map[string]int64{"ext_a": 500, "ext_b": 300, "ext_c": 100, "ext_d": 300}
	for ext, xp := range xps {
		user, err := svc.EnsureUser(asUser(ext), domain.EnsureUserRequest{Email: ext + "@example.com", Name: ext})
		require.NoError(t, err)
		require.NoError(t, db.Model(&domain.User{}).Where("id = ?", user.ID).Update("total_xp", xp).Error)
	}

	board, err := svc.Leaderboard(asUser("ext_c"), 0)
	require.NoError(t, err)
	require.Len(t, board, 4)
	assert.Equal(t, int64(500), board[0].TotalXP)
	assert.Equal(t, 1, board[0].Rank)
	assert.True(t, strings.HasPrefix(board[0].DisplayName, "Player"))
	assert.Len(t, board[0].DisplayName, len("Player")+4)
	assert.True(t, board[3].IsCurrentUser)
	assert.False(t, board[0].IsCurrentUser)

	top, err := svc.Leaderboard(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)

	info, err := svc.RankInfo(asUser("ext_c"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), info.Rank)
	assert.Equal(t, int64(4), info.TotalUsers)
	assert.Equal(t, int64(0), info.Percentile)
	assert.Equal(t, int64(200), info.XPToNextRank)

	info, err = svc.RankInfo(asUser("ext_b"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.Rank)
	assert.Equal(t, int64(50), info.Percentile)
	assert.Equal(t, int64(200), info.XPToNextRank)

	info, err = svc.RankInfo(asUser("ext_a"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.Rank)
	assert.Equal(t, int64(75), info.Percentile)
	assert.Zero(t, info.XPToNextRank)
	assert.Empty(t, info.NextRankUsername)
}

func TestResolveUsesCache(t *testing.T) {
	svc, db, _ := setupUserService(t)
	ctx := asUser("ext_1")
	created, err := svc.EnsureUser(ctx, domain.EnsureUserRequest{Email: "a@example.com"})
	require.NoError(t, err)

	id, err := svc.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, created.ID, id)

	// The mapping is served from cache even once the row is gone.
	require.NoError(t, db.Exec("DELETE FROM users").Error)
	id, err = svc.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, created.ID, id)

	_, err = svc.Resolve(asUser("unknown"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Resolve(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestDisplayName(t *testing.T) {
	name := "zen"
	u := domain.User{ID: snowflake.ID(1234567), AnonymousMode: true, Username: &name}
	assert.Equal(t, "Player4567", u.DisplayName())

	u.AnonymousMode = false
	assert.Equal(t, "zen", u.DisplayName())

	u.Username = nil
	u.Name = "Zed"
	assert.Equal(t, "Zed", u.DisplayName())

	u.Name = ""
	assert.Equal(t, "Anonymous", u.DisplayName())
}
