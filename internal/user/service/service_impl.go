package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/mindshift/internal/cache"
	"github.com/smallbiznis/mindshift/internal/clock"
	"github.com/smallbiznis/mindshift/internal/level"
	"github.com/smallbiznis/mindshift/internal/user/domain"
	"github.com/smallbiznis/mindshift/internal/usercontext"
	"github.com/smallbiznis/mindshift/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 32
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Cache cache.UserResolverCache
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	cache cache.UserResolverCache
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("user.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		cache: p.Cache,
	}
}

// EnsureUser creates the user on first sign-in and refreshes the identity
// fields on every later call.
func (s *Service) EnsureUser(ctx context.Context, req domain.EnsureUserRequest) (domain.User, error) {
	externalID, ok := usercontext.ExternalIDFromContext(ctx)
	if !ok {
		return domain.User{}, domain.ErrUnauthorized
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, domain.ErrInvalidEmail
	}

	now := s.clock.Now()
	existing, err := s.repo.FindByExternalID(ctx, s.db, externalID)
	if err != nil {
		return domain.User{}, err
	}
	if existing != nil {
		s.cache.SetUserID(externalID, existing.ID)
		return s.updateColumns(ctx, existing.ID, map[string]any{
			"email":      email,
			"name":       strings.TrimSpace(req.Name),
			"image_url":  strings.TrimSpace(req.ImageURL),
			"updated_at": now,
		})
	}

	user := domain.User{
		ID:                s.genID.Generate(),
		ExternalID:        externalID,
		Email:             email,
		Name:              strings.TrimSpace(req.Name),
		ImageURL:          strings.TrimSpace(req.ImageURL),
		Level:             1,
		DailyPracticeGoal: domain.DefaultDailyPracticeGoal,
		ReminderTime:      domain.DefaultReminderTime,
		AnonymousMode:     true,
		SubscriptionTier:  domain.TierFree,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Insert(ctx, s.db, &user); err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return domain.User{}, err
		}
		// A concurrent sign-in created the row first.
		winner, findErr := s.repo.FindByExternalID(ctx, s.db, externalID)
		if findErr != nil {
			return domain.User{}, findErr
		}
		if winner == nil {
			return domain.User{}, err
		}
		user = *winner
	} else {
		s.log.Info("user created",
			zap.String("user_id", user.ID.String()),
			zap.String("external_id", externalID),
		)
	}

	s.cache.SetUserID(externalID, user.ID)
	return user, nil
}

func (s *Service) Me(ctx context.Context) (domain.Profile, error) {
	user, err := s.current(ctx)
	if err != nil {
		return domain.Profile{}, err
	}
	return domain.Profile{
		User:     *user,
		Progress: level.ProgressFor(user.TotalXP),
		Tier:     level.TierForLevel(user.Level).Info(),
	}, nil
}

func (s *Service) UpdateSettings(ctx context.Context, req domain.UpdateSettingsRequest) (domain.User, error) {
	user, err := s.current(ctx)
	if err != nil {
		return domain.User{}, err
	}

	columns := map[string]any{"updated_at": s.clock.Now()}
	if req.DailyPracticeGoal != nil {
		if *req.DailyPracticeGoal < 1 {
			return domain.User{}, domain.ErrInvalidDailyGoal
		}
		columns["daily_practice_goal"] = *req.DailyPracticeGoal
	}
	if req.ReminderEnabled != nil {
		columns["reminder_enabled"] = *req.ReminderEnabled
	}
	if req.ReminderTime != nil {
		value := strings.TrimSpace(*req.ReminderTime)
		if !validReminderTime(value) {
			return domain.User{}, domain.ErrInvalidReminderTime
		}
		columns["reminder_time"] = value
	}
	if req.AnonymousMode != nil {
		columns["anonymous_mode"] = *req.AnonymousMode
	}

	return s.updateColumns(ctx, user.ID, columns)
}

func (s *Service) UpdateProfile(ctx context.Context, req domain.UpdateProfileRequest) (domain.User, error) {
	user, err := s.current(ctx)
	if err != nil {
		return domain.User{}, err
	}
	if req.Username == nil {
		return *user, nil
	}

	var username *string
	raw := strings.TrimSpace(*req.Username)
	if raw != "" {
		if !user.IsPro() {
			return domain.User{}, domain.ErrUsernameRequiresPro
		}
		normalized := slug.Make(raw)
		if len(normalized) < minUsernameLength || len(normalized) > maxUsernameLength {
			return domain.User{}, domain.ErrInvalidUsername
		}
		holder, err := s.repo.FindByUsername(ctx, s.db, normalized)
		if err != nil {
			return domain.User{}, err
		}
		if holder != nil && holder.ID != user.ID {
			return domain.User{}, domain.ErrUsernameTaken
		}
		username = &normalized
	}

	updated, err := s.updateColumns(ctx, user.ID, map[string]any{
		"username":   username,
		"updated_at": s.clock.Now(),
	})
	if db.IsDuplicateKeyErr(err) {
		return domain.User{}, domain.ErrUsernameTaken
	}
	return updated, err
}

// UpdateSubscription is the single writer of the subscription fields. It is
// driven by the billing integration, not by the user.
func (s *Service) UpdateSubscription(ctx context.Context, externalID string, req domain.UpdateSubscriptionRequest) (domain.User, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return domain.User{}, domain.ErrNotFound
	}
	if !req.Tier.Valid() {
		return domain.User{}, domain.ErrInvalidSubscriptionTier
	}

	user, err := s.repo.FindByExternalID(ctx, s.db, externalID)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}

	updated, err := s.updateColumns(ctx, user.ID, map[string]any{
		"subscription_tier":      req.Tier,
		"subscription_status":    strings.TrimSpace(req.Status),
		"stripe_customer_id":     strings.TrimSpace(req.StripeCustomerID),
		"stripe_subscription_id": strings.TrimSpace(req.StripeSubscriptionID),
		"subscription_ends_at":   req.EndsAt,
		"updated_at":             s.clock.Now(),
	})
	if err != nil {
		return domain.User{}, err
	}

	s.log.Info("subscription updated",
		zap.String("user_id", user.ID.String()),
		zap.String("from_tier", string(user.SubscriptionTier)),
		zap.String("to_tier", string(req.Tier)),
	)
	return updated, nil
}

func (s *Service) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = domain.DefaultLeaderboardLimit
	}
	if limit > domain.MaxLeaderboardLimit {
		limit = domain.MaxLeaderboardLimit
	}

	var currentID snowflake.ID
	if id, err := s.Resolve(ctx); err == nil {
		currentID = id
	}

	users, err := s.repo.Top(ctx, s.db, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:          i + 1,
			UserID:        u.ID,
			DisplayName:   u.DisplayName(),
			TotalXP:       u.TotalXP,
			Level:         u.Level,
			CurrentStreak: u.CurrentStreak,
			IsCurrentUser: currentID != 0 && u.ID == currentID,
		})
	}
	return entries, nil
}

func (s *Service) RankInfo(ctx context.Context) (domain.RankInfo, error) {
	user, err := s.current(ctx)
	if err != nil {
		return domain.RankInfo{}, err
	}

	above, err := s.repo.CountAbove(ctx, s.db, user.TotalXP)
	if err != nil {
		return domain.RankInfo{}, err
	}
	total, err := s.repo.Count(ctx, s.db)
	if err != nil {
		return domain.RankInfo{}, err
	}

	info := domain.RankInfo{
		Rank:       above + 1,
		TotalUsers: total,
	}
	if total > 0 {
		info.Percentile = int64(math.Round((1 - float64(info.Rank)/float64(total)) * 100))
	}

	if above > 0 {
		next, err := s.repo.NextAbove(ctx, s.db, user.TotalXP)
		if err != nil {
			return domain.RankInfo{}, err
		}
		if next != nil {
			info.XPToNextRank = next.TotalXP - user.TotalXP
			info.NextRankUsername = next.DisplayName()
		}
	}
	return info, nil
}

func (s *Service) Resolve(ctx context.Context) (snowflake.ID, error) {
	if id, ok := usercontext.UserIDFromContext(ctx); ok {
		return id, nil
	}
	externalID, ok := usercontext.ExternalIDFromContext(ctx)
	if !ok {
		return 0, domain.ErrUnauthorized
	}
	return s.ResolveExternalID(ctx, externalID)
}

func (s *Service) ResolveExternalID(ctx context.Context, externalID string) (snowflake.ID, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return 0, domain.ErrUnauthorized
	}
	if id, ok := s.cache.GetUserID(externalID); ok {
		return id, nil
	}

	user, err := s.repo.FindByExternalID(ctx, s.db, externalID)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, domain.ErrNotFound
	}
	s.cache.SetUserID(externalID, user.ID)
	return user.ID, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.User, error) {
	if id == 0 {
		return domain.User{}, domain.ErrNotFound
	}
	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return *user, nil
}

func (s *Service) current(ctx context.Context) (*domain.User, error) {
	id, err := s.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

// updateColumns writes only the columns owned by the caller, leaving the
// progression state to the practice orchestrator, and returns the fresh row.
func (s *Service) updateColumns(ctx context.Context, id snowflake.ID, columns map[string]any) (domain.User, error) {
	if err := s.repo.UpdateColumns(ctx, s.db, id, columns); err != nil {
		return domain.User{}, err
	}
	return s.Get(ctx, id)
}

func validReminderTime(value string) bool {
	if len(value) != len("15:04") {
		return false
	}
	_, err := time.Parse("15:04", value)
	return err == nil
}
