package domain

// Criteria holds the minimums a badge declares. Nil fields are not part of
// the badge's rule.
type Criteria struct {
	Practices          *int64 `json:"practices,omitempty" mapstructure:"practices"`
	Streak             *int64 `json:"streak,omitempty" mapstructure:"streak"`
	TotalReps          *int64 `json:"total_reps,omitempty" mapstructure:"total_reps"`
	Affirmations       *int64 `json:"affirmations,omitempty" mapstructure:"affirmations"`
	Level              *int64 `json:"level,omitempty" mapstructure:"level"`
	EarlyPractices     *int64 `json:"early_practices,omitempty" mapstructure:"early_practices"`
	LatePractices      *int64 `json:"late_practices,omitempty" mapstructure:"late_practices"`
	UniqueAffirmations *int64 `json:"unique_affirmations,omitempty" mapstructure:"unique_affirmations"`
}

// Empty reports whether no criterion is declared.
func (c Criteria) Empty() bool {
	return c.Practices == nil &&
		c.Streak == nil &&
		c.TotalReps == nil &&
		c.Affirmations == nil &&
		c.Level == nil &&
		c.EarlyPractices == nil &&
		c.LatePractices == nil &&
		c.UniqueAffirmations == nil
}

// Definition is a catalog entry. It is code or config defined, never user data.
type Definition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Criteria    Criteria `json:"criteria"`
}

// Stats is the aggregate snapshot badges are evaluated against.
type Stats struct {
	Practices          int64 `json:"practices"`
	Streak             int64 `json:"streak"`
	TotalReps          int64 `json:"total_reps"`
	Affirmations       int64 `json:"affirmations"`
	Level              int64 `json:"level"`
	EarlyPractices     int64 `json:"early_practices"`
	LatePractices      int64 `json:"late_practices"`
	UniqueAffirmations int64 `json:"unique_affirmations"`
}
