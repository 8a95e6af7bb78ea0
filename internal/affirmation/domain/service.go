package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/mindshift/pkg/db/pagination"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	MaxThoughtLength     = 2000
	MaxAffirmationLength = 1000
)

type CreateRequest struct {
	OriginalThought      string   `json:"original_thought"`
	AffirmationText      string   `json:"affirmation_text"`
	DetectedLevel        *int     `json:"detected_level"`
	CognitiveDistortions []string `json:"cognitive_distortions"`
	ThemeCategory        string   `json:"theme_category"`
	ChosenLevel          *int     `json:"chosen_level"`
	UserEdited           bool     `json:"user_edited"`
}

// ListRequest filters by archive state when Archived is set. A non-empty
// Query ranks matches by fuzzy score and returns a single page.
type ListRequest struct {
	Archived  *bool
	Query     string
	PageToken string
	PageSize  int
}

type ListResponse struct {
	pagination.PageInfo
	Affirmations []Affirmation `json:"affirmations"`
}

type UpdateTextRequest struct {
	ID              string `json:"-"`
	AffirmationText string `json:"affirmation_text"`
}

// TransformationCount reports how much of the free creation allowance is used.
type TransformationCount struct {
	Count     int64 `json:"count"`
	Limit     int64 `json:"limit,omitempty"`
	Remaining int64 `json:"remaining,omitempty"`
	Unlimited bool  `json:"unlimited"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Affirmation, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Get(ctx context.Context, id string) (Affirmation, error)
	UpdateText(ctx context.Context, req UpdateTextRequest) (Affirmation, error)
	Archive(ctx context.Context, id string) (Affirmation, error)
	Restore(ctx context.Context, id string) (Affirmation, error)
	Delete(ctx context.Context, id string) error
	TransformationCount(ctx context.Context) (TransformationCount, error)
}

var (
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidThought = errors.New("invalid_original_thought")
	ErrInvalidText    = errors.New("invalid_affirmation_text")
	ErrInvalidLevel   = errors.New("invalid_level")
	ErrNotFound       = errors.New("affirmation_not_found")
	ErrFreeTierLimit  = errors.New("free_tier_limit_reached")
)
