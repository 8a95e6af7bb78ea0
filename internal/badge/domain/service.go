package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// EarnedBadge joins a badge record with its catalog metadata.
type EarnedBadge struct {
	Definition
	EarnedAt time.Time `json:"earned_at"`
}

type AwardResult struct {
	Awarded bool        `json:"awarded"`
	Badge   EarnedBadge `json:"badge"`
}

type Service interface {
	Catalog(ctx context.Context) CatalogResponse
	Award(ctx context.Context, userID snowflake.ID, badgeType string) (AwardResult, error)
	List(ctx context.Context, userID snowflake.ID) ([]EarnedBadge, error)
	Has(ctx context.Context, userID snowflake.ID, badgeType string) (bool, error)
}

type CatalogResponse struct {
	Version string       `json:"version"`
	Badges  []Definition `json:"badges"`
}

var (
	ErrInvalidBadgeType = errors.New("invalid_badge_type")
	ErrInvalidUser      = errors.New("invalid_user")
)
