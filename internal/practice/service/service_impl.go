package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	affirmationdomain "github.com/smallbiznis/mindshift/internal/affirmation/domain"
	badgedomain "github.com/smallbiznis/mindshift/internal/badge/domain"
	"github.com/smallbiznis/mindshift/internal/badge/rules"
	"github.com/smallbiznis/mindshift/internal/celebration"
	"github.com/smallbiznis/mindshift/internal/clock"
	"github.com/smallbiznis/mindshift/internal/config"
	"github.com/smallbiznis/mindshift/internal/level"
	obscontext "github.com/smallbiznis/mindshift/internal/observability/context"
	obsmetrics "github.com/smallbiznis/mindshift/internal/observability/metrics"
	"github.com/smallbiznis/mindshift/internal/practice/domain"
	"github.com/smallbiznis/mindshift/internal/ratelimit"
	"github.com/smallbiznis/mindshift/internal/streak"
	userdomain "github.com/smallbiznis/mindshift/internal/user/domain"
	"github.com/smallbiznis/mindshift/internal/xp"
	"github.com/smallbiznis/mindshift/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Config          config.Config
	Repo            domain.Repository
	UserRepo        userdomain.Repository
	UserSvc         userdomain.Service
	AffirmationRepo affirmationdomain.Repository
	BadgeRepo       badgedomain.Repository
	Catalog         *rules.Catalog
	Guard           *ratelimit.PracticeGuard `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics      `optional:"true"`
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	loc             *time.Location
	repo            domain.Repository
	userRepo        userdomain.Repository
	userSvc         userdomain.Service
	affirmationRepo affirmationdomain.Repository
	badgeRepo       badgedomain.Repository
	catalog         *rules.Catalog
	guard           *ratelimit.PracticeGuard
	obsMetrics      *obsmetrics.Metrics
}

func New(p Params) (domain.Service, error) {
	log := p.Log.Named("practice.service")
	guard := p.Guard
	if guard == nil {
		var err error
		guard, err = ratelimit.NewPracticeGuard(p.Config, nil, p.Log)
		if err != nil {
			return nil, err
		}
	}
	return &Service{
		db:              p.DB,
		log:             log,
		genID:           p.GenID,
		clock:           p.Clock,
		loc:             p.Config.Location(),
		repo:            p.Repo,
		userRepo:        p.UserRepo,
		userSvc:         p.UserSvc,
		affirmationRepo: p.AffirmationRepo,
		badgeRepo:       p.BadgeRepo,
		catalog:         p.Catalog,
		guard:           guard,
		obsMetrics:      p.ObsMetrics,
	}, nil
}

// Submit records one practice event and applies every progression effect
// of it atomically: streak, XP, level, affirmation counters, lifetime
// aggregates and newly earned badges.
func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (*domain.Result, error) {
	ctx = obscontext.WithOperation(ctx, "practice.submit")
	userID, err := s.userSvc.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	if req.Repetitions <= 0 {
		return nil, domain.ErrInvalidRepetitions
	}
	if req.DurationSeconds < 0 {
		return nil, domain.ErrInvalidDuration
	}
	affirmationID, err := snowflake.ParseString(strings.TrimSpace(req.AffirmationID))
	if err != nil || affirmationID == 0 {
		return nil, domain.ErrInvalidAffirmation
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if len(key) > domain.MaxIdempotencyKeyLength {
		return nil, domain.ErrInvalidIdempotency
	}

	release, err := s.guard.Acquire(ctx, userID.String())
	if err != nil {
		if errors.Is(err, ratelimit.ErrLockBusy) {
			return nil, domain.ErrBusy
		}
		return nil, err
	}
	defer release()

	if key != "" {
		replayed, err := s.replay(ctx, userID, affirmationID, key)
		if err != nil || replayed != nil {
			return replayed, err
		}
	}

	var (
		result *domain.Result
		tier   userdomain.SubscriptionTier
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, tier, err = s.apply(ctx, tx, userID, affirmationID, req, key)
		return err
	})
	if err != nil {
		if key != "" && db.IsDuplicateKeyErr(err) {
			// Another replica committed the same key first; answer with its result.
			replayed, replayErr := s.replay(ctx, userID, affirmationID, key)
			if replayErr != nil {
				return nil, replayErr
			}
			if replayed != nil {
				return replayed, nil
			}
		}
		if db.IsRetryable(err) {
			s.log.Warn("practice submit hit a retryable storage error",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
			return nil, fmt.Errorf("%w: %v", domain.ErrRetryable, err)
		}
		return nil, err
	}

	s.record(ctx, result, tier)
	s.log.Info("practice committed",
		zap.String("user_id", userID.String()),
		zap.String("practice_id", result.PracticeID.String()),
		zap.Int64("xp_earned", result.XPEarned),
		zap.Int("streak", result.CurrentStreak),
		zap.Int("level", result.NewLevel),
		zap.Int("new_badges", len(result.NewBadges)),
	)
	return result, nil
}

func (s *Service) apply(
	ctx context.Context,
	tx *gorm.DB,
	userID, affirmationID snowflake.ID,
	req domain.SubmitRequest,
	key string,
) (*domain.Result, userdomain.SubscriptionTier, error) {
	user, err := s.userRepo.FindByIDForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", domain.ErrUserNotFound
	}
	affirmation, err := s.affirmationRepo.FindByID(ctx, tx, userID, affirmationID)
	if err != nil {
		return nil, "", err
	}
	if affirmation == nil {
		return nil, "", domain.ErrAffirmationNotFound
	}

	now := s.clock.Now()
	local := now.In(s.loc)
	today := clock.DateOf(now, s.loc)

	practicedToday, err := s.repo.CountOnDate(ctx, tx, userID, today.String())
	if err != nil {
		return nil, "", err
	}
	firstToday := practicedToday == 0
	newAffirmation := affirmation.TimesPracticed == 0

	var lastDate *clock.Date
	if user.LastPracticeDate != nil && *user.LastPracticeDate != "" {
		parsed, err := clock.ParseDate(*user.LastPracticeDate)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", domain.ErrInvalidPracticeDate, err)
		}
		lastDate = &parsed
	}
	next, err := streak.Next(streak.Input{
		LastPracticeDate: lastDate,
		Today:            today,
		CurrentStreak:    user.CurrentStreak,
		IsPro:            user.IsPro(),
		LastShieldUsed:   user.LastStreakShieldUsed,
		Now:              now,
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrInvalidPracticeDate, err)
	}

	// XP uses the post-update streak so an extended streak pays out now.
	breakdown := xp.Compute(xp.Input{
		Repetitions:    req.Repetitions,
		Streak:         next.Streak,
		FirstToday:     firstToday,
		NewAffirmation: newAffirmation,
		Morning:        xp.IsMorning(local.Hour()),
	})

	oldLevel := level.LevelForXP(user.TotalXP)
	newTotal := user.TotalXP + breakdown.Total
	newLevel := level.LevelForXP(newTotal)
	oldTier := level.TierForLevel(oldLevel)
	newTier := level.TierForLevel(newLevel)

	todayStr := today.String()
	user.TotalXP = newTotal
	user.Level = newLevel
	user.CurrentStreak = next.Streak
	user.LongestStreak = streak.Longest(user.LongestStreak, next.Streak)
	user.LastPracticeDate = &todayStr
	if next.ShieldConsumed {
		user.LastStreakShieldUsed = &now
	}
	user.PracticeCount++
	user.TotalRepetitions += int64(req.Repetitions)
	if domain.IsEarly(local.Hour()) {
		user.EarlyPractices++
	}
	if domain.IsLate(local.Hour()) {
		user.LatePractices++
	}
	if newAffirmation {
		user.UniqueAffirmations++
	}
	user.UpdatedAt = now
	if err := s.userRepo.SaveProgress(ctx, tx, user); err != nil {
		return nil, "", err
	}

	practice := domain.Practice{
		ID:              s.genID.Generate(),
		UserID:          userID,
		AffirmationID:   affirmation.ID,
		Repetitions:     req.Repetitions,
		DurationSeconds: req.DurationSeconds,
		XPEarned:        breakdown.Total,
		PracticeDate:    todayStr,
		PracticedAt:     now,
	}
	if err := s.repo.Insert(ctx, tx, &practice); err != nil {
		return nil, "", err
	}
	if err := s.affirmationRepo.RecordPractice(ctx, tx, affirmation.ID, req.Repetitions, now); err != nil {
		return nil, "", err
	}

	newBadges, err := s.awardBadges(ctx, tx, user, now)
	if err != nil {
		return nil, "", err
	}

	result := &domain.Result{
		PracticeID:       practice.ID,
		AffirmationID:    affirmation.ID,
		PracticedAt:      now,
		XPEarned:         breakdown.Total,
		Breakdown:        breakdown,
		TotalXP:          newTotal,
		OldLevel:         oldLevel,
		NewLevel:         newLevel,
		OldTier:          oldTier,
		NewTier:          newTier,
		LeveledUp:        newLevel > oldLevel,
		TierChanged:      oldTier != newTier,
		CurrentStreak:    user.CurrentStreak,
		LongestStreak:    user.LongestStreak,
		UsedStreakShield: next.ShieldConsumed,
		NewBadges:        newBadges,
		Celebration:      celebration.Classify(oldLevel, newLevel, oldTier, newTier),
		Milestone:        crossedMilestone(oldLevel, newLevel),
		Progress:         level.ProgressFor(newTotal),
	}

	if key != "" {
		payload, err := json.Marshal(result)
		if err != nil {
			return nil, "", err
		}
		if err := s.repo.InsertSubmission(ctx, tx, &domain.Submission{
			ID:             s.genID.Generate(),
			UserID:         userID,
			IdempotencyKey: key,
			PracticeID:     practice.ID,
			Result:         datatypes.JSON(payload),
			CreatedAt:      now,
		}); err != nil {
			return nil, "", err
		}
	}

	return result, user.SubscriptionTier, nil
}

// awardBadges evaluates the catalog against the post-event aggregates held on
// user and inserts every newly met badge.
func (s *Service) awardBadges(ctx context.Context, tx *gorm.DB, user *userdomain.User, now time.Time) ([]badgedomain.Definition, error) {
	earned, err := s.badgeRepo.ListTypesByUser(ctx, tx, user.ID)
	if err != nil {
		return nil, err
	}

	defs := s.catalog.Definitions()
	ids := rules.Evaluate(defs, statsFor(user), earned)
	if len(ids) == 0 {
		return []badgedomain.Definition{}, nil
	}

	byID := make(map[string]badgedomain.Definition, len(defs))
	for _, def := range defs {
		byID[def.ID] = def
	}

	out := make([]badgedomain.Definition, 0, len(ids))
	for _, id := range ids {
		inserted, err := s.badgeRepo.InsertIfAbsent(ctx, tx, &badgedomain.Badge{
			ID:        s.genID.Generate(),
			UserID:    user.ID,
			BadgeType: id,
			EarnedAt:  now,
		})
		if err != nil {
			return nil, err
		}
		if inserted {
			out = append(out, byID[id])
		}
	}
	return out, nil
}

func (s *Service) replay(ctx context.Context, userID, affirmationID snowflake.ID, key string) (*domain.Result, error) {
	submission, err := s.repo.FindSubmission(ctx, s.db, userID, key)
	if err != nil || submission == nil {
		return nil, err
	}

	var result domain.Result
	if err := json.Unmarshal(submission.Result, &result); err != nil {
		return nil, err
	}
	if result.AffirmationID != affirmationID {
		return nil, domain.ErrInvalidIdempotency
	}
	result.Replayed = true
	return &result, nil
}

func (s *Service) record(ctx context.Context, result *domain.Result, tier userdomain.SubscriptionTier) {
	s.obsMetrics.RecordPractice(ctx, string(tier), string(result.Celebration), result.XPEarned)
	if result.LeveledUp {
		s.obsMetrics.RecordLevelUp(ctx, string(result.NewTier))
	}
	if result.UsedStreakShield {
		s.obsMetrics.RecordStreakShield(ctx, string(tier))
	}
	for _, badge := range result.NewBadges {
		s.obsMetrics.RecordBadgeAwarded(ctx, badge.ID, "practice")
	}
}

// statsFor maps the lifetime aggregates onto the badge criteria. The streak
// criterion is a lifetime achievement, so it reads the longest streak.
func statsFor(user *userdomain.User) badgedomain.Stats {
	return badgedomain.Stats{
		Practices:          user.PracticeCount,
		Streak:             int64(user.LongestStreak),
		TotalReps:          user.TotalRepetitions,
		Affirmations:       user.AffirmationsCreated,
		Level:              int64(user.Level),
		EarlyPractices:     user.EarlyPractices,
		LatePractices:      user.LatePractices,
		UniqueAffirmations: user.UniqueAffirmations,
	}
}

// crossedMilestone returns the highest milestone in (oldLevel, newLevel].
func crossedMilestone(oldLevel, newLevel int) *level.Milestone {
	for l := newLevel; l > oldLevel; l-- {
		if m, ok := level.MilestoneFor(l); ok {
			return &m
		}
	}
	return nil
}
