package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/mindshift/internal/badge/domain"
	"github.com/smallbiznis/mindshift/internal/badge/repository"
	"github.com/smallbiznis/mindshift/internal/badge/rules"
	"github.com/smallbiznis/mindshift/internal/clock"
	"github.com/smallbiznis/mindshift/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, holder *config.BadgeCatalogHolder) (domain.Service, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&domain.Badge{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   clk,
		Repo:    repository.Provide(),
		Catalog: rules.NewCatalog(rules.CatalogParams{Log: zap.NewNop(), Holder: holder}),
	})
	return svc, clk
}

func TestAwardIsIdempotent(t *testing.T) {
	svc, clk := newTestService(t, nil)
	ctx := context.Background()
	userID := snowflake.ID(42)

	first, err := svc.Award(ctx, userID, "week_warrior")
	require.NoError(t, err)
	assert.True(t, first.Awarded)
	assert.Equal(t, "Week Warrior", first.Badge.Name)

	clk.Advance(time.Hour)
	second, err := svc.Award(ctx, userID, "week_warrior")
	require.NoError(t, err)
	assert.False(t, second.Awarded)
	assert.True(t, first.Badge.EarnedAt.Equal(second.Badge.EarnedAt))

	earned, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, earned, 1)
	assert.Equal(t, "week_warrior", earned[0].ID)

	has, err := svc.Has(ctx, userID, "week_warrior")
	require.NoError(t, err)
	assert.True(t, has)
	has, err = svc.Has(ctx, userID, "legend")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestAwardValidation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Award(ctx, 42, "not_a_badge")
	assert.ErrorIs(t, err, domain.ErrInvalidBadgeType)
	_, err = svc.Award(ctx, 0, "first_steps")
	assert.ErrorIs(t, err, domain.ErrInvalidUser)
	_, err = svc.List(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidUser)
	_, err = svc.Has(ctx, 42, " ")
	assert.ErrorIs(t, err, domain.ErrInvalidBadgeType)
}

func TestCatalogMergesConfiguredBadges(t *testing.T) {
	holder := config.NewStaticBadgeCatalogHolder(config.BadgeCatalogFile{
		Version: "spring",
		Badges: []config.BadgeDefinition{
			{ID: "first_steps", Name: "Day One", Criteria: map[string]int64{"practices": 1}},
			{ID: "marathon", Name: "Marathon", Criteria: map[string]int64{"streak": 365}},
			{ID: "broken", Name: "Broken", Criteria: map[string]int64{"unknown": 1}},
		},
	})
	svc, _ := newTestService(t, holder)

	catalog := svc.Catalog(context.Background())
	assert.Equal(t, rules.BuiltinVersion+"+spring", catalog.Version)
	assert.Len(t, catalog.Badges, len(rules.Builtin())+1)
	assert.Equal(t, "Day One", catalog.Badges[0].Name)
	assert.Equal(t, "marathon", catalog.Badges[len(catalog.Badges)-1].ID)

	res, err := svc.Award(context.Background(), 7, "marathon")
	require.NoError(t, err)
	assert.True(t, res.Awarded)

	_, err = svc.Award(context.Background(), 7, "broken")
	assert.ErrorIs(t, err, domain.ErrInvalidBadgeType)
}
