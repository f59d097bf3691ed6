package round

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Ralphbruens/Scoreboard/go/internal/models"
)

func TestNormalizeSettingsAlignsBonusesWithFields(t *testing.T) {
	tests := []struct {
		name     string
		settings models.RoundSettings
		want     []int
	}{
		{"defaults", models.RoundSettings{}, []int{5, 10, 15, 20, 25}},
		{"fewer fields trims", models.RoundSettings{Fields: 3}, []int{5, 10, 15}},
		{"more fields pads with zero", models.RoundSettings{Fields: 7}, []int{5, 10, 15, 20, 25, 0, 0}},
		{"explicit bonuses", models.RoundSettings{Fields: 2, BonusScores: []int{1}}, []int{1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeSettings(tt.settings, DefaultSettings())
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got.BonusScores); diff != "" {
				t.Errorf("bonus scores mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
