package types

import (
	"encoding/json"
	"testing"
)

func TestAmountString(t *testing.T) {
	tests := []struct {
		name   string
		amount Amount
		want   string
	}{
		{"seeds", Seeds(120), "120 seeds"},
		{"single seed", Seeds(1), "1 seed"},
		{"negative seeds", Seeds(-30), "-30 seeds"},
		{"hana money", HanaMoney(30), "30 HM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.amount.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAmountArithmetic(t *testing.T) {
	a := Seeds(50)
	b := Seeds(30)

	if got := a.Add(b); got.Value != 80 {
		t.Errorf("Add = %d, want 80", got.Value)
	}
	if got := a.Subtract(b); got.Value != 20 {
		t.Errorf("Subtract = %d, want 20", got.Value)
	}
	if got := b.Negate(); got.Value != -30 || !got.IsNegative() {
		t.Errorf("Negate = %d, want -30", got.Value)
	}
	if got := Seeds(-7).Abs(); got.Value != 7 || !got.IsPositive() {
		t.Errorf("Abs = %d, want 7", got.Value)
	}
}

func TestToHanaMoney(t *testing.T) {
	got := Seeds(30).ToHanaMoney()
	if got.Unit != UnitHanaMoney {
		t.Fatalf("unit = %q, want %q", got.Unit, UnitHanaMoney)
	}
	if got.Value != 30 {
		t.Errorf("value = %d, want 30", got.Value)
	}
}

func TestUnitMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic adding seeds to hana money")
		}
	}()
	_ = Seeds(1).Add(HanaMoney(1))
}

func TestAmountMarshalJSON(t *testing.T) {
	data, err := json.Marshal(Seeds(5))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["display"] != "5 seeds" {
		t.Errorf("display = %v, want %q", out["display"], "5 seeds")
	}
	if out["unit"] != "seed" {
		t.Errorf("unit = %v, want %q", out["unit"], "seed")
	}
}
