package rules

import (
	"strings"

	"github.com/smallbiznis/mindshift/internal/badge/domain"
	"github.com/smallbiznis/mindshift/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// BuiltinVersion identifies the compiled-in catalog.
const BuiltinVersion = "2025.1"

func atLeast(v int64) *int64 { return &v }

var builtin = []domain.Definition{
	{ID: "first_steps", Name: "First Steps", Icon: "🌱", Description: "Complete your first practice session", Criteria: domain.Criteria{Practices: atLeast(1)}},
	{ID: "week_warrior", Name: "Week Warrior", Icon: "🔥", Description: "Maintain a 7-day streak", Criteria: domain.Criteria{Streak: atLeast(7)}},
	{ID: "month_master", Name: "Month Master", Icon: "💪", Description: "Maintain a 30-day streak", Criteria: domain.Criteria{Streak: atLeast(30)}},
	{ID: "century_club", Name: "Century Club", Icon: "💯", Description: "Complete 100 total repetitions", Criteria: domain.Criteria{TotalReps: atLeast(100)}},
	{ID: "power_user", Name: "Power User", Icon: "⚡", Description: "Complete 500 total repetitions", Criteria: domain.Criteria{TotalReps: atLeast(500)}},
	{ID: "transformer", Name: "Transformer", Icon: "🎯", Description: "Create 50 affirmations", Criteria: domain.Criteria{Affirmations: atLeast(50)}},
	{ID: "grand_master", Name: "Grand Master", Icon: "👑", Description: "Complete 1,000 total repetitions", Criteria: domain.Criteria{TotalReps: atLeast(1000)}},
	{ID: "legend", Name: "Legend", Icon: "🌟", Description: "Maintain a 100-day streak", Criteria: domain.Criteria{Streak: atLeast(100)}},
	{ID: "elite", Name: "Elite", Icon: "💎", Description: "Complete 5,000 total repetitions", Criteria: domain.Criteria{TotalReps: atLeast(5000)}},

	{ID: "novice_complete", Name: "Novice Graduate", Icon: "🎓", Description: "Reached Level 10", Criteria: domain.Criteria{Level: atLeast(10)}},
	{ID: "apprentice_complete", Name: "Apprentice Graduate", Icon: "📚", Description: "Reached Level 20", Criteria: domain.Criteria{Level: atLeast(20)}},
	{ID: "practitioner_complete", Name: "Practitioner Graduate", Icon: "🥋", Description: "Reached Level 30", Criteria: domain.Criteria{Level: atLeast(30)}},
	{ID: "expert_complete", Name: "Expert Graduate", Icon: "🏅", Description: "Reached Level 40", Criteria: domain.Criteria{Level: atLeast(40)}},
	{ID: "master_complete", Name: "Master", Icon: "🏆", Description: "Reached Level 50", Criteria: domain.Criteria{Level: atLeast(50)}},

	{ID: "early_bird", Name: "Early Bird", Icon: "🌅", Description: "Practice before 7am 10 times", Criteria: domain.Criteria{EarlyPractices: atLeast(10)}},
	{ID: "night_owl", Name: "Night Owl", Icon: "🦉", Description: "Practice after 10pm 10 times", Criteria: domain.Criteria{LatePractices: atLeast(10)}},
	{ID: "variety_seeker", Name: "Variety Seeker", Icon: "🎨", Description: "Practice 20 different affirmations", Criteria: domain.Criteria{UniqueAffirmations: atLeast(20)}},

	{ID: "ten_practices", Name: "Getting Started", Icon: "🎯", Description: "Complete 10 practice sessions", Criteria: domain.Criteria{Practices: atLeast(10)}},
	{ID: "fifty_practices", Name: "Dedicated", Icon: "🎪", Description: "Complete 50 practice sessions", Criteria: domain.Criteria{Practices: atLeast(50)}},
	{ID: "hundred_practices", Name: "Committed", Icon: "🏅", Description: "Complete 100 practice sessions", Criteria: domain.Criteria{Practices: atLeast(100)}},

	{ID: "first_affirmation", Name: "Thought Shifter", Icon: "💭", Description: "Create your first affirmation", Criteria: domain.Criteria{Affirmations: atLeast(1)}},
	{ID: "ten_affirmations", Name: "Mind Builder", Icon: "🧠", Description: "Create 10 affirmations", Criteria: domain.Criteria{Affirmations: atLeast(10)}},
	{ID: "twenty_five_affirmations", Name: "Pattern Breaker", Icon: "⚡", Description: "Create 25 affirmations", Criteria: domain.Criteria{Affirmations: atLeast(25)}},
}

// Builtin returns a copy of the compiled-in catalog.
func Builtin() []domain.Definition {
	out := make([]domain.Definition, len(builtin))
	copy(out, builtin)
	return out
}

type CatalogParams struct {
	fx.In

	Log    *zap.Logger
	Holder *config.BadgeCatalogHolder `optional:"true"`
}

// Catalog merges the builtin definitions with the optional badges.yml file.
// Entries from the file replace builtin entries with the same id and are
// appended otherwise.
type Catalog struct {
	log    *zap.Logger
	holder *config.BadgeCatalogHolder
}

func NewCatalog(p CatalogParams) *Catalog {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{log: log.Named("badge.catalog"), holder: p.Holder}
}

func (c *Catalog) Version() string {
	if c == nil || c.holder == nil {
		return BuiltinVersion
	}
	if v := strings.TrimSpace(c.holder.Get().Version); v != "" {
		return BuiltinVersion + "+" + v
	}
	return BuiltinVersion
}

func (c *Catalog) Definitions() []domain.Definition {
	defs := Builtin()
	if c == nil || c.holder == nil {
		return defs
	}

	index := make(map[string]int, len(defs))
	for i, def := range defs {
		index[def.ID] = i
	}

	for _, raw := range c.holder.Get().Badges {
		def, err := definitionFromConfig(raw)
		if err != nil {
			c.log.Warn("skipping badge definition", zap.String("badge_type", raw.ID), zap.Error(err))
			continue
		}
		if i, ok := index[def.ID]; ok {
			defs[i] = def
			continue
		}
		index[def.ID] = len(defs)
		defs = append(defs, def)
	}
	return defs
}

func (c *Catalog) Lookup(id string) (domain.Definition, bool) {
	id = strings.TrimSpace(id)
	for _, def := range c.Definitions() {
		if def.ID == id {
			return def, true
		}
	}
	return domain.Definition{}, false
}

func definitionFromConfig(raw config.BadgeDefinition) (domain.Definition, error) {
	def := domain.Definition{
		ID:          strings.TrimSpace(raw.ID),
		Name:        strings.TrimSpace(raw.Name),
		Description: strings.TrimSpace(raw.Description),
		Icon:        strings.TrimSpace(raw.Icon),
	}
	if def.ID == "" {
		return domain.Definition{}, domain.ErrInvalidBadgeType
	}

	for key, value := range raw.Criteria {
		v := value
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "practices":
			def.Criteria.Practices = &v
		case "streak":
			def.Criteria.Streak = &v
		case "total_reps", "totalreps":
			def.Criteria.TotalReps = &v
		case "affirmations":
			def.Criteria.Affirmations = &v
		case "level":
			def.Criteria.Level = &v
		case "early_practices", "earlypractices":
			def.Criteria.EarlyPractices = &v
		case "late_practices", "latepractices":
			def.Criteria.LatePractices = &v
		case "unique_affirmations", "uniqueaffirmations":
			def.Criteria.UniqueAffirmations = &v
		default:
			return domain.Definition{}, &UnknownCriterionError{Key: key}
		}
	}
	if def.Criteria.Empty() {
		return domain.Definition{}, ErrNoCriteria
	}
	return def, nil
}
