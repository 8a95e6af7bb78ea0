package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mindshift/internal/badge/domain"
	"github.com/smallbiznis/mindshift/internal/badge/rules"
	"github.com/smallbiznis/mindshift/internal/clock"
	obsmetrics "github.com/smallbiznis/mindshift/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	Catalog    *rules.Catalog
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	catalog    *rules.Catalog
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("badge.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		catalog:    p.Catalog,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Catalog(ctx context.Context) domain.CatalogResponse {
	return domain.CatalogResponse{
		Version: s.catalog.Version(),
		Badges:  s.catalog.Definitions(),
	}
}

// Award grants badgeType outside of the practice flow. Granting a badge the
// user already holds is a no-op that returns the original record.
func (s *Service) Award(ctx context.Context, userID snowflake.ID, badgeType string) (domain.AwardResult, error) {
	if userID == 0 {
		return domain.AwardResult{}, domain.ErrInvalidUser
	}
	def, ok := s.catalog.Lookup(strings.TrimSpace(badgeType))
	if !ok {
		return domain.AwardResult{}, domain.ErrInvalidBadgeType
	}

	record := domain.Badge{
		ID:        s.genID.Generate(),
		UserID:    userID,
		BadgeType: def.ID,
		EarnedAt:  s.clock.Now(),
	}
	inserted, err := s.repo.InsertIfAbsent(ctx, s.db, &record)
	if err != nil {
		return domain.AwardResult{}, err
	}

	if !inserted {
		earned, err := s.List(ctx, userID)
		if err != nil {
			return domain.AwardResult{}, err
		}
		for _, b := range earned {
			if b.ID == def.ID {
				return domain.AwardResult{Awarded: false, Badge: b}, nil
			}
		}
		return domain.AwardResult{Awarded: false, Badge: domain.EarnedBadge{Definition: def}}, nil
	}

	s.obsMetrics.RecordBadgeAwarded(ctx, def.ID, "manual")
	s.log.Info("badge awarded",
		zap.String("user_id", userID.String()),
		zap.String("badge_type", def.ID),
	)
	return domain.AwardResult{
		Awarded: true,
		Badge:   domain.EarnedBadge{Definition: def, EarnedAt: record.EarnedAt},
	}, nil
}

func (s *Service) List(ctx context.Context, userID snowflake.ID) ([]domain.EarnedBadge, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}
	records, err := s.repo.ListByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.EarnedBadge, 0, len(records))
	for _, record := range records {
		def, ok := s.catalog.Lookup(record.BadgeType)
		if !ok {
			// Retired catalog entries keep their id so the record stays visible.
			def = domain.Definition{ID: record.BadgeType, Name: record.BadgeType}
		}
		out = append(out, domain.EarnedBadge{Definition: def, EarnedAt: record.EarnedAt})
	}
	return out, nil
}

func (s *Service) Has(ctx context.Context, userID snowflake.ID, badgeType string) (bool, error) {
	if userID == 0 {
		return false, domain.ErrInvalidUser
	}
	badgeType = strings.TrimSpace(badgeType)
	if badgeType == "" {
		return false, domain.ErrInvalidBadgeType
	}
	return s.repo.Exists(ctx, s.db, userID, badgeType)
}
