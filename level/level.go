// Package level maps lifetime Eco-Seed totals to eco levels.
package level

import "sort"

// Level is the code of an eco level.
type Level string

const (
	Beginner     Level = "BEGINNER"
	Intermediate Level = "INTERMEDIATE"
	Expert       Level = "EXPERT"
)

// Info describes one eco level.
type Info struct {
	Code        Level  `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	MinPoints   int64  `json:"min_points"`
}

// Progress is a member's position within the level table.
type Progress struct {
	Current        Info    `json:"current"`
	Next           *Info   `json:"next,omitempty"`
	ProgressToNext float64 `json:"progress_to_next"`
	PointsToNext   int64   `json:"points_to_next"`
}

// Table is an ordered set of levels. The first row must start at zero.
type Table []Info

// Default is the standard level table.
var Default = Table{
	{Code: Beginner, Name: "Eco Beginner", Description: "Just started the eco journey", Icon: "🌱", Color: "#10B981", MinPoints: 0},
	{Code: Intermediate, Name: "Eco Explorer", Description: "Building green habits", Icon: "🌿", Color: "#059669", MinPoints: 1000},
	{Code: Expert, Name: "Eco Expert", Description: "A seasoned guardian of the planet", Icon: "🌳", Color: "#047857", MinPoints: 5000},
}

// Sorted returns a copy of t ordered by MinPoints.
func (t Table) Sorted() Table {
	out := make(Table, len(t))
	copy(out, t)
	sort.SliceStable(out, func(i, j int) bool { return out[i].MinPoints < out[j].MinPoints })
	return out
}

// For returns the highest level whose threshold points reaches.
func (t Table) For(points int64) Info {
	idx := t.index(points)
	return t[idx]
}

// ProgressFor computes progress towards the next level.
func (t Table) ProgressFor(points int64) Progress {
	idx := t.index(points)
	p := Progress{Current: t[idx], ProgressToNext: 1}
	if idx+1 >= len(t) {
		return p
	}

	next := t[idx+1]
	p.Next = &next
	p.PointsToNext = max(next.MinPoints-points, 0)

	span := next.MinPoints - t[idx].MinPoints
	if span > 0 {
		p.ProgressToNext = clamp(float64(points-t[idx].MinPoints) / float64(span))
	}
	return p
}

// Lookup finds a level by code.
func (t Table) Lookup(code Level) (Info, bool) {
	for _, info := range t {
		if info.Code == code {
			return info, true
		}
	}
	return Info{}, false
}

func (t Table) index(points int64) int {
	idx := 0
	for i, info := range t {
		if points >= info.MinPoints {
			idx = i
		}
	}
	return idx
}

// For evaluates points against the Default table.
func For(points int64) Info { return Default.For(points) }

// ProgressFor evaluates points against the Default table.
func ProgressFor(points int64) Progress { return Default.ProgressFor(points) }

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
