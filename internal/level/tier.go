package level

// Tier is a five band grouping of levels. It is always derived from a level.
type Tier string

const (
	TierNovice       Tier = "novice"
	TierApprentice   Tier = "apprentice"
	TierPractitioner Tier = "practitioner"
	TierExpert       Tier = "expert"
	TierMaster       Tier = "master"
)

// TierInfo is the display metadata of a tier.
type TierInfo struct {
	Tier        Tier   `json:"tier"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	Description string `json:"description"`
	MinLevel    int    `json:"min_level"`
	MaxLevel    int    `json:"max_level,omitempty"`
}

// Milestone is the reward shown when a tier is completed.
type Milestone struct {
	Level  int    `json:"level"`
	Title  string `json:"title"`
	Reward string `json:"reward"`
}

var tiers = []TierInfo{
	{Tier: TierNovice, Name: "Novice", Icon: "🌱", Color: "gray", Description: "Beginning your mindshift journey", MinLevel: 1, MaxLevel: 10},
	{Tier: TierApprentice, Name: "Apprentice", Icon: "📘", Color: "blue", Description: "Learning the foundations", MinLevel: 11, MaxLevel: 20},
	{Tier: TierPractitioner, Name: "Practitioner", Icon: "🔮", Color: "purple", Description: "Building strong habits", MinLevel: 21, MaxLevel: 30},
	{Tier: TierExpert, Name: "Expert", Icon: "⚡", Color: "gold", Description: "Mastering your mindset", MinLevel: 31, MaxLevel: 40},
	{Tier: TierMaster, Name: "Master", Icon: "👑", Color: "red", Description: "Transcendent self-talk", MinLevel: 41},
}

var milestones = map[int]Milestone{
	10: {Level: 10, Title: "Novice Complete!", Reward: "Unlocked Apprentice tier"},
	20: {Level: 20, Title: "Apprentice Complete!", Reward: "Unlocked Practitioner tier"},
	30: {Level: 30, Title: "Practitioner Complete!", Reward: "Unlocked Expert tier"},
	40: {Level: 40, Title: "Expert Complete!", Reward: "Unlocked Master tier"},
	50: {Level: 50, Title: "Master Achieved!", Reward: "Every tier completed"},
}

// TierForLevel bands a level into its tier.
func TierForLevel(level int) Tier {
	switch {
	case level <= 10:
		return TierNovice
	case level <= 20:
		return TierApprentice
	case level <= 30:
		return TierPractitioner
	case level <= 40:
		return TierExpert
	default:
		return TierMaster
	}
}

// Info returns the display metadata for t.
func (t Tier) Info() TierInfo {
	for _, info := range tiers {
		if info.Tier == t {
			return info
		}
	}
	return tiers[0]
}

// Tiers lists every tier in ascending order.
func Tiers() []TierInfo {
	out := make([]TierInfo, len(tiers))
	copy(out, tiers)
	return out
}

// MilestoneFor reports the milestone reached at level, if any.
func MilestoneFor(level int) (Milestone, bool) {
	m, ok := milestones[level]
	return m, ok
}
