package entity

// BadgeDefinition describes an achievement and the condition that earns it.
// Condition is an expression over the stats variables exposed by the badge evaluator.
type BadgeDefinition struct {
	ID        string
	Icon      string
	Name      string
	Condition string
}

// Badge is a definition evaluated against one user's stats.
type Badge struct {
	BadgeDefinition
	Earned bool
}

// DefaultBadges mirrors the achievements shown on the stats screen.
func DefaultBadges() []BadgeDefinition {
	return []BadgeDefinition{
		{ID: "quiz_master", Icon: "🏆", Name: "Quiz Master", Condition: "totalQuizzes >= 100"},
		{ID: "speed_runner", Icon: "⚡", Name: "Speed Runner", Condition: "averageTimeSeconds > 0 && averageTimeSeconds < 60"},
		{ID: "perfectionist", Icon: "🎯", Name: "Perfectionist", Condition: "accuracyPercentage >= 90"},
		{ID: "explorer", Icon: "🧭", Name: "Explorer", Condition: "totalQuizzes >= 10"},
		{ID: "streak_legend", Icon: "🔥", Name: "Streak Legend", Condition: "bestStreak >= 7"},
		{ID: "champion", Icon: "👑", Name: "Champion", Condition: "totalQuizzes >= 50"},
	}
}

// MergeBadges applies overrides to defaults by id. Blank fields of an override
// keep the default's value; unknown ids are appended. Entries without an id are ignored.
func MergeBadges(defaults, overrides []BadgeDefinition) []BadgeDefinition {
	out := append([]BadgeDefinition(nil), defaults...)
	index := make(map[string]int, len(out))
	for i, def := range out {
		index[def.ID] = i
	}
	for _, o := range overrides {
		if o.ID == "" {
			continue
		}
		i, ok := index[o.ID]
		if !ok {
			index[o.ID] = len(out)
			out = append(out, o)
			continue
		}
		if o.Icon != "" {
			out[i].Icon = o.Icon
		}
		if o.Name != "" {
			out[i].Name = o.Name
		}
		if o.Condition != "" {
			out[i].Condition = o.Condition
		}
	}
	return out
}
