package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/sahilm/fuzzy"
	"github.com/smallbiznis/mindshift/internal/affirmation/domain"
	"github.com/smallbiznis/mindshift/internal/clock"
	"github.com/smallbiznis/mindshift/internal/config"
	userdomain "github.com/smallbiznis/mindshift/internal/user/domain"
	"github.com/smallbiznis/mindshift/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultFreeLimit = 10

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Config   config.Config
	Repo     domain.Repository
	UserRepo userdomain.Repository
	UserSvc  userdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	userRepo  userdomain.Repository
	userSvc   userdomain.Service
	freeLimit int64
}

func New(p Params) domain.Service {
	limit := int64(p.Config.FreeAffirmationLimit)
	if limit <= 0 {
		limit = defaultFreeLimit
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("affirmation.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		userRepo:  p.UserRepo,
		userSvc:   p.UserSvc,
		freeLimit: limit,
	}
}

// Create stores a new affirmation with zeroed practice counters. Free users
// are capped on lifetime creations, so deleting does not free a slot.
func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Affirmation, error) {
	userID, err := s.userSvc.Resolve(ctx)
	if err != nil {
		return domain.Affirmation{}, err
	}

	thought := strings.TrimSpace(req.OriginalThought)
	if thought == "" || utf8.RuneCountInString(thought) > domain.MaxThoughtLength {
		return domain.Affirmation{}, domain.ErrInvalidThought
	}
	text := strings.TrimSpace(req.AffirmationText)
	if text == "" || utf8.RuneCountInString(text) > domain.MaxAffirmationLength {
		return domain.Affirmation{}, domain.ErrInvalidText
	}
	if !validLevel(req.DetectedLevel) || !validLevel(req.ChosenLevel) {
		return domain.Affirmation{}, domain.ErrInvalidLevel
	}

	distortions := datatypes.JSONSlice[string]{}
	for _, d := range req.CognitiveDistortions {
		if d = strings.TrimSpace(d); d != "" {
			distortions = append(distortions, d)
		}
	}

	now := s.clock.Now()
	affirmation := domain.Affirmation{
		ID:                   s.genID.Generate(),
		UserID:               userID,
		OriginalThought:      thought,
		AffirmationText:      text,
		DetectedLevel:        req.DetectedLevel,
		CognitiveDistortions: distortions,
		ThemeCategory:        strings.TrimSpace(req.ThemeCategory),
		ChosenLevel:          req.ChosenLevel,
		UserEdited:           req.UserEdited,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.FindByIDForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return userdomain.ErrNotFound
		}
		if !user.IsPro() && user.AffirmationsCreated >= s.freeLimit {
			return domain.ErrFreeTierLimit
		}
		if err := s.repo.Insert(ctx, tx, &affirmation); err != nil {
			return err
		}
		return s.userRepo.IncrementAffirmationsCreated(ctx, tx, userID)
	})
	if err != nil {
		return domain.Affirmation{}, err
	}

	s.log.Info("affirmation created",
		zap.String("user_id", userID.String()),
		zap.String("affirmation_id", affirmation.ID.String()),
	)
	return affirmation, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	userID, err := s.userSvc.Resolve(ctx)
	if err != nil {
		return domain.ListResponse{}, err
	}

	filter := domain.ListFilter{Archived: req.Archived}
	pageSize := pagination.NormalizeSize(req.PageSize, domain.DefaultPageSize, domain.MaxPageSize)

	if query := strings.TrimSpace(req.Query); query != "" {
		items, err := s.repo.ListAll(ctx, s.db, userID, filter)
		if err != nil {
			return domain.ListResponse{}, err
		}
		return domain.ListResponse{Affirmations: search(query, items, pageSize)}, nil
	}

	items, err := s.repo.List(ctx, s.db, userID, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(a *domain.Affirmation) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: a.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > pageSize {
		items = items[:pageSize]
	}

	out := make([]domain.Affirmation, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return domain.ListResponse{PageInfo: pageInfo, Affirmations: out}, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Affirmation, error) {
	_, affirmation, err := s.owned(ctx, id)
	if err != nil {
		return domain.Affirmation{}, err
	}
	return *affirmation, nil
}

func (s *Service) UpdateText(ctx context.Context, req domain.UpdateTextRequest) (domain.Affirmation, error) {
	text := strings.TrimSpace(req.AffirmationText)
	if text == "" || utf8.RuneCountInString(text) > domain.MaxAffirmationLength {
		return domain.Affirmation{}, domain.ErrInvalidText
	}
	return s.mutate(ctx, req.ID, func(a *domain.Affirmation) {
		a.AffirmationText = text
		a.UserEdited = true
	})
}

func (s *Service) Archive(ctx context.Context, id string) (domain.Affirmation, error) {
	return s.mutate(ctx, id, func(a *domain.Affirmation) {
		a.Archived = true
	})
}

func (s *Service) Restore(ctx context.Context, id string) (domain.Affirmation, error) {
	return s.mutate(ctx, id, func(a *domain.Affirmation) {
		a.Archived = false
	})
}

// Delete removes the affirmation and its practice events. Lifetime user
// aggregates and earned XP are kept.
func (s *Service) Delete(ctx context.Context, id string) error {
	userID, affirmation, err := s.owned(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, s.db, userID, affirmation.ID); err != nil {
		return err
	}
	s.log.Info("affirmation deleted",
		zap.String("user_id", userID.String()),
		zap.String("affirmation_id", affirmation.ID.String()),
	)
	return nil
}

func (s *Service) TransformationCount(ctx context.Context) (domain.TransformationCount, error) {
	userID, err := s.userSvc.Resolve(ctx)
	if err != nil {
		return domain.TransformationCount{}, err
	}
	user, err := s.userSvc.Get(ctx, userID)
	if err != nil {
		return domain.TransformationCount{}, err
	}

	if user.IsPro() {
		return domain.TransformationCount{Count: user.AffirmationsCreated, Unlimited: true}, nil
	}
	remaining := s.freeLimit - user.AffirmationsCreated
	if remaining < 0 {
		remaining = 0
	}
	return domain.TransformationCount{
		Count:     user.AffirmationsCreated,
		Limit:     s.freeLimit,
		Remaining: remaining,
	}, nil
}

func (s *Service) mutate(ctx context.Context, id string, apply func(*domain.Affirmation)) (domain.Affirmation, error) {
	_, affirmation, err := s.owned(ctx, id)
	if err != nil {
		return domain.Affirmation{}, err
	}
	apply(affirmation)
	affirmation.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, affirmation); err != nil {
		return domain.Affirmation{}, err
	}
	return *affirmation, nil
}

func (s *Service) owned(ctx context.Context, rawID string) (snowflake.ID, *domain.Affirmation, error) {
	userID, err := s.userSvc.Resolve(ctx)
	if err != nil {
		return 0, nil, err
	}
	id, err := parseID(rawID)
	if err != nil {
		return 0, nil, err
	}
	affirmation, err := s.repo.FindByID(ctx, s.db, userID, id)
	if err != nil {
		return 0, nil, err
	}
	if affirmation == nil {
		return 0, nil, domain.ErrNotFound
	}
	return userID, affirmation, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func validLevel(level *int) bool {
	return level == nil || *level > 0
}

type affirmationSource []*domain.Affirmation

func (s affirmationSource) String(i int) string {
	return s[i].AffirmationText + " " + s[i].OriginalThought + " " + s[i].ThemeCategory
}

func (s affirmationSource) Len() int { return len(s) }

// search ranks items by fuzzy match score, best first.
func search(query string, items []*domain.Affirmation, limit int) []domain.Affirmation {
	matches := fuzzy.FindFrom(query, affirmationSource(items))
	out := make([]domain.Affirmation, 0, min(len(matches), limit))
	for _, m := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, *items[m.Index])
	}
	return out
}
