package category_test

import (
	"errors"
	"testing"

	"github.com/xraph/ecoseed/category"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    category.Category
		wantErr bool
	}{
		{"DAILY_QUIZ", category.DailyQuiz, false},
		{"walking", category.Walking, false},
		{"  eco_challenge ", category.EcoChallenge, false},
		{"HANA_MONEY_CONVERSION", category.HanaMoneyConversion, false},
		{"LOTTERY", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := category.Parse(tt.in)
			if tt.wantErr {
				if !errors.Is(err, category.ErrUnknown) {
					t.Fatalf("Parse(%q) error = %v, want ErrUnknown", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRegistryComplete(t *testing.T) {
	all := category.All()
	if len(all) != 8 {
		t.Fatalf("len(All()) = %d, want 8", len(all))
	}

	seen := make(map[category.Category]bool)
	for _, info := range all {
		if seen[info.Code] {
			t.Errorf("duplicate category %q", info.Code)
		}
		seen[info.Code] = true

		if info.Label == "" {
			t.Errorf("%s has empty label", info.Code)
		}
		if info.Image == "" {
			t.Errorf("%s has empty image", info.Code)
		}
		got, ok := category.Lookup(info.Code)
		if !ok || got != info {
			t.Errorf("Lookup(%s) = %+v, %v", info.Code, got, ok)
		}
	}
}

func TestAllReturnsCopy(t *testing.T) {
	all := category.All()
	all[0].Label = "changed"

	if category.All()[0].Label == "changed" {
		t.Error("All() exposed the registry backing slice")
	}
}

func TestSides(t *testing.T) {
	tests := []struct {
		c         category.Category
		earn, use bool
	}{
		{category.DailyQuiz, true, false},
		{category.TeamChallenge, true, false},
		{category.EnvironmentDonation, false, true},
		{category.HanaMoneyConversion, false, false},
		{category.Category("NOPE"), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.c), func(t *testing.T) {
			if got := tt.c.AllowsEarn(); got != tt.earn {
				t.Errorf("AllowsEarn() = %v, want %v", got, tt.earn)
			}
			if got := tt.c.AllowsUse(); got != tt.use {
				t.Errorf("AllowsUse() = %v, want %v", got, tt.use)
			}
		})
	}
}

func TestLabelFallback(t *testing.T) {
	if got := category.Walking.Label(); got != "Walking" {
		t.Errorf("Label() = %q, want %q", got, "Walking")
	}
	if got := category.Category("MYSTERY").Label(); got != "MYSTERY" {
		t.Errorf("Label() = %q, want raw code", got)
	}
	if category.Category("MYSTERY").Valid() {
		t.Error("unknown category reported valid")
	}
}
