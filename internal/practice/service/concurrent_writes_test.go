package service

import (
	"context"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	affirmationrepo "github.com/smallbiznis/mindshift/internal/affirmation/repository"
	badgerepo "github.com/smallbiznis/mindshift/internal/badge/repository"
	"github.com/smallbiznis/mindshift/internal/badge/rules"
	"github.com/smallbiznis/mindshift/internal/cache"
	"github.com/smallbiznis/mindshift/internal/config"
	"github.com/smallbiznis/mindshift/internal/practice/domain"
	practicerepo "github.com/smallbiznis/mindshift/internal/practice/repository"
	userdomain "github.com/smallbiznis/mindshift/internal/user/domain"
	userrepo "github.com/smallbiznis/mindshift/internal/user/repository"
	userservice "github.com/smallbiznis/mindshift/internal/user/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// interleavingUserRepo runs hook once, right after the first user read, so
// another writer commits between that read and the caller's write.
type interleavingUserRepo struct {
	userdomain.Repository

	once sync.Once
	hook func()
}

func (r *interleavingUserRepo) afterRead() {
	if r.hook != nil {
		r.once.Do(r.hook)
	}
}

func (r *interleavingUserRepo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*userdomain.User, error) {
	user, err := r.Repository.FindByID(ctx, db, id)
	r.afterRead()
	return user, err
}

func (r *interleavingUserRepo) FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*userdomain.User, error) {
	user, err := r.Repository.FindByExternalID(ctx, db, externalID)
	r.afterRead()
	return user, err
}

func TestUserWritesKeepConcurrentPracticeProgress(t *testing.T) {
	goal := 3

	tests := []struct {
		name  string
		write func(ctx context.Context, svc userdomain.Service) (userdomain.User, error)
		check func(t *testing.T, user userdomain.User)
	}{
		{
			name: "settings",
			write: func(ctx context.Context, svc userdomain.Service) (userdomain.User, error) {
				return svc.UpdateSettings(ctx, userdomain.UpdateSettingsRequest{DailyPracticeGoal: &goal})
			},
			check: func(t *testing.T, user userdomain.User) {
				assert.Equal(t, 3, user.DailyPracticeGoal)
			},
		},
		{
			name: "subscription",
			write: func(_ context.Context, svc userdomain.Service) (userdomain.User, error) {
				return svc.UpdateSubscription(context.Background(), "ext_1", userdomain.UpdateSubscriptionRequest{Tier: userdomain.TierPro, Status: "active"})
			},
			check: func(t *testing.T, user userdomain.User) {
				assert.Equal(t, userdomain.TierPro, user.SubscriptionTier)
				assert.Equal(t, "active", user.SubscriptionStatus)
			},
		},
		{
			name: "sign-in refresh",
			write: func(ctx context.Context, svc userdomain.Service) (userdomain.User, error) {
				return svc.EnsureUser(ctx, userdomain.EnsureUserRequest{Email: "renamed@example.com", Name: "Ana"})
			},
			check: func(t *testing.T, user userdomain.User) {
				assert.Equal(t, "renamed@example.com", user.Email)
				assert.Equal(t, "Ana", user.Name)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx, affirmationID := h.signUp(t, "ext_1")

			resolver, err := cache.NewUserResolverCache(8)
			require.NoError(t, err)
			node, err := snowflake.NewNode(2)
			require.NoError(t, err)
			repo := &interleavingUserRepo{Repository: userrepo.Provide()}
			svc := userservice.New(userservice.Params{
				DB: h.db, Log: zap.NewNop(), GenID: node, Clock: h.clock,
				Repo:  repo,
				Cache: resolver,
			})
			_, err = svc.Resolve(ctx)
			require.NoError(t, err)

			var submitted *domain.Result
			repo.hook = func() {
				res, err := h.practices.Submit(ctx, domain.SubmitRequest{AffirmationID: affirmationID, Repetitions: 10})
				require.NoError(t, err)
				submitted = res
			}

			updated, err := tt.write(ctx, svc)
			require.NoError(t, err)
			require.NotNil(t, submitted)
			assert.Equal(t, int64(65), submitted.TotalXP)
			tt.check(t, updated)
			assert.Equal(t, int64(65), updated.TotalXP)

			stored := h.user(t, ctx)
			tt.check(t, stored)
			assert.Equal(t, int64(65), stored.TotalXP)
			assert.Equal(t, 3, stored.Level)
			assert.Equal(t, 1, stored.CurrentStreak)
			assert.Equal(t, 1, stored.LongestStreak)
			require.NotNil(t, stored.LastPracticeDate)
			assert.Equal(t, "2025-03-10", *stored.LastPracticeDate)
			assert.Equal(t, int64(1), stored.PracticeCount)
			assert.Equal(t, int64(10), stored.TotalRepetitions)
			assert.Equal(t, int64(1), stored.UniqueAffirmations)
			assert.Equal(t, int64(1), stored.AffirmationsCreated)
		})
	}
}

// staleSubmissionRepo hides stored submissions from the first lookup, the
// view a replica has while another one commits the same key.
type staleSubmissionRepo struct {
	domain.Repository

	mu      sync.Mutex
	lookups int
}

func (r *staleSubmissionRepo) FindSubmission(ctx context.Context, db *gorm.DB, userID snowflake.ID, key string) (*domain.Submission, error) {
	r.mu.Lock()
	r.lookups++
	first := r.lookups == 1
	r.mu.Unlock()
	if first {
		return nil, nil
	}
	return r.Repository.FindSubmission(ctx, db, userID, key)
}

func TestSubmitReplaysWhenKeyCommittedConcurrently(t *testing.T) {
	h := newHarness(t)
	ctx, affirmationID := h.signUp(t, "ext_1")
	req := domain.SubmitRequest{AffirmationID: affirmationID, Repetitions: 10, IdempotencyKey: "session-1"}

	first, err := h.practices.Submit(ctx, req)
	require.NoError(t, err)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	log := zap.NewNop()
	repo := &staleSubmissionRepo{Repository: practicerepo.Provide()}
	replica, err := New(Params{
		DB: h.db, Log: log, GenID: node, Clock: h.clock,
		Config:          config.Config{TimeZone: "UTC", FreeAffirmationLimit: 10},
		Repo:            repo,
		UserRepo:        userrepo.Provide(),
		UserSvc:         h.users,
		AffirmationRepo: affirmationrepo.Provide(),
		BadgeRepo:       badgerepo.Provide(),
		Catalog:         rules.NewCatalog(rules.CatalogParams{Log: log}),
	})
	require.NoError(t, err)

	second, err := replica.Submit(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.PracticeID, second.PracticeID)
	assert.Equal(t, 2, repo.lookups)

	user := h.user(t, ctx)
	assert.Equal(t, int64(65), user.TotalXP)
	assert.Equal(t, int64(1), user.PracticeCount)
	assert.Equal(t, int64(10), user.TotalRepetitions)
}
