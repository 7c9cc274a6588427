package level

import "testing"

func TestFor(t *testing.T) {
	tests := []struct {
		points int64
		want   Level
	}{
		{0, Beginner},
		{999, Beginner},
		{1000, Intermediate},
		{4999, Intermediate},
		{5000, Expert},
		{1_000_000, Expert},
		{-5, Beginner},
	}

	for _, tt := range tests {
		if got := For(tt.points).Code; got != tt.want {
			t.Errorf("For(%d) = %s, want %s", tt.points, got, tt.want)
		}
	}
}

func TestProgressFor(t *testing.T) {
	tests := []struct {
		name         string
		points       int64
		wantProgress float64
		wantToNext   int64
		wantNext     Level
	}{
		{"start", 0, 0, 1000, Intermediate},
		{"half way", 500, 0.5, 500, Intermediate},
		{"second tier", 3000, 0.5, 2000, Expert},
		{"top", 7000, 1, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ProgressFor(tt.points)
			if p.ProgressToNext != tt.wantProgress {
				t.Errorf("ProgressToNext = %v, want %v", p.ProgressToNext, tt.wantProgress)
			}
			if p.PointsToNext != tt.wantToNext {
				t.Errorf("PointsToNext = %d, want %d", p.PointsToNext, tt.wantToNext)
			}
			if tt.wantNext == "" {
				if p.Next != nil {
					t.Errorf("Next = %v, want nil", p.Next.Code)
				}
				return
			}
			if p.Next == nil || p.Next.Code != tt.wantNext {
				t.Errorf("Next = %v, want %s", p.Next, tt.wantNext)
			}
		})
	}
}

func TestProgressClamped(t *testing.T) {
	for _, points := range []int64{-100, 0, 999, 1000, 4999, 5000, 99999} {
		p := ProgressFor(points)
		if p.ProgressToNext < 0 || p.ProgressToNext > 1 {
			t.Errorf("ProgressFor(%d).ProgressToNext = %v, out of [0,1]", points, p.ProgressToNext)
		}
		if p.PointsToNext < 0 {
			t.Errorf("ProgressFor(%d).PointsToNext = %d, negative", points, p.PointsToNext)
		}
	}
}

func TestDefaultPresentation(t *testing.T) {
	want := map[Level][2]string{
		Beginner:     {"🌱", "#10B981"},
		Intermediate: {"🌿", "#059669"},
		Expert:       {"🌳", "#047857"},
	}
	for code, w := range want {
		info, ok := Default.Lookup(code)
		if !ok {
			t.Fatalf("Lookup(%s) missing", code)
		}
		if info.Icon != w[0] || info.Color != w[1] {
			t.Errorf("%s = %s %s, want %s %s", code, info.Icon, info.Color, w[0], w[1])
		}
	}
}

func TestSorted(t *testing.T) {
	shuffled := Table{Default[2], Default[0], Default[1]}
	sorted := shuffled.Sorted()
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].MinPoints > sorted[i].MinPoints {
			t.Fatalf("Sorted() not ordered: %v", sorted)
		}
	}
	if shuffled[0].Code != Expert {
		t.Error("Sorted() mutated the receiver")
	}
}
