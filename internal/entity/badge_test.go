package entity

import "testing"

func TestMergeBadges(t *testing.T) {
	defaults := []BadgeDefinition{
		{ID: "explorer", Icon: "🧭", Name: "Explorer", Condition: "totalQuizzes >= 10"},
		{ID: "champion", Icon: "👑", Name: "Champion", Condition: "totalQuizzes >= 50"},
	}
	merged := MergeBadges(defaults, []BadgeDefinition{
		{ID: "explorer", Condition: "totalQuizzes >= 5"},
		{ID: "night_owl", Name: "Night Owl", Condition: "level >= 3"},
		{Name: "ignored"},
	})

	if len(merged) != 3 {
		t.Fatalf("expected 3 badges, got %d", len(merged))
	}
	if merged[0].Condition != "totalQuizzes >= 5" || merged[0].Name != "Explorer" || merged[0].Icon != "🧭" {
		t.Fatalf("override not applied field by field: %+v", merged[0])
	}
	if merged[2].ID != "night_owl" {
		t.Fatalf("new badge should be appended: %+v", merged[2])
	}
	if defaults[0].Condition != "totalQuizzes >= 10" {
		t.Fatalf("defaults must not be modified")
	}
}
