package service

import (
	"context"

	affirmationdomain "github.com/smallbiznis/mindshift/internal/affirmation/domain"
	"github.com/smallbiznis/mindshift/internal/clock"
	"github.com/smallbiznis/mindshift/internal/level"
	"github.com/smallbiznis/mindshift/internal/practice/domain"
	userdomain "github.com/smallbiznis/mindshift/internal/user/domain"
	"golang.org/x/sync/errgroup"
)

func (s *Service) TodayProgress(ctx context.Context) (domain.TodayProgress, error) {
	user, err := s.currentUser(ctx)
	if err != nil {
		return domain.TodayProgress{}, err
	}

	today := clock.DateOf(s.clock.Now(), s.loc).String()
	summary, err := s.repo.SummaryOnDate(ctx, s.db, user.ID, today)
	if err != nil {
		return domain.TodayProgress{}, err
	}

	return domain.TodayProgress{
		Date:             today,
		PracticeCount:    summary.Count,
		DailyGoal:        user.DailyPracticeGoal,
		GoalMet:          summary.Count >= int64(user.DailyPracticeGoal),
		StreakMaintained: summary.Count > 0 || (user.LastPracticeDate != nil && *user.LastPracticeDate == today),
		CurrentStreak:    user.CurrentStreak,
		XPEarnedToday:    summary.XP,
	}, nil
}

// History returns one entry per day with at least one practice, covering
// the last days calendar days including today.
func (s *Service) History(ctx context.Context, days int) ([]domain.DaySummary, error) {
	userID, err := s.userSvc.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = domain.DefaultHistoryDays
	}
	if days > domain.MaxHistoryDays {
		days = domain.MaxHistoryDays
	}

	from := clock.DateOf(s.clock.Now(), s.loc).AddDays(-(days - 1))
	out, err := s.repo.DailySummaries(ctx, s.db, userID, from.String())
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.DaySummary{}
	}
	return out, nil
}

// Stats gathers the progression summary. The independent reads run
// concurrently.
func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	userID, err := s.userSvc.Resolve(ctx)
	if err != nil {
		return domain.Stats{}, err
	}

	today := clock.DateOf(s.clock.Now(), s.loc).String()
	archived := true
	active := false

	var (
		user           *userdomain.User
		practicesToday int64
		badges         int64
		archivedCount  int64
		activeCount    int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found, err := s.userRepo.FindByID(gctx, s.db, userID)
		if err != nil {
			return err
		}
		if found == nil {
			return domain.ErrUserNotFound
		}
		user = found
		return nil
	})
	g.Go(func() error {
		var err error
		practicesToday, err = s.repo.CountOnDate(gctx, s.db, userID, today)
		return err
	})
	g.Go(func() error {
		var err error
		badges, err = s.badgeRepo.CountByUser(gctx, s.db, userID)
		return err
	})
	g.Go(func() error {
		var err error
		archivedCount, err = s.affirmationRepo.Count(gctx, s.db, userID, affirmationdomain.ListFilter{Archived: &archived})
		return err
	})
	g.Go(func() error {
		var err error
		activeCount, err = s.affirmationRepo.Count(gctx, s.db, userID, affirmationdomain.ListFilter{Archived: &active})
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Stats{}, err
	}

	return domain.Stats{
		TotalXP:              user.TotalXP,
		Progress:             level.ProgressFor(user.TotalXP),
		Tier:                 level.TierForLevel(level.LevelForXP(user.TotalXP)).Info(),
		CurrentStreak:        user.CurrentStreak,
		LongestStreak:        user.LongestStreak,
		TotalPractices:       user.PracticeCount,
		TotalRepetitions:     user.TotalRepetitions,
		AffirmationsCreated:  user.AffirmationsCreated,
		ActiveAffirmations:   activeCount,
		ArchivedAffirmations: archivedCount,
		EarlyPractices:       user.EarlyPractices,
		LatePractices:        user.LatePractices,
		UniqueAffirmations:   user.UniqueAffirmations,
		PracticesToday:       practicesToday,
		BadgesEarned:         badges,
	}, nil
}

func (s *Service) currentUser(ctx context.Context) (*userdomain.User, error) {
	userID, err := s.userSvc.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}
