package availability

import (
	"slices"
	"time"

	"github.com/teemow/meetsync/internal/model"
)

// Normalize sorts intervals by start, drops empty ones and merges those that
// overlap or touch. The input slice is not modified.
func Normalize(in []model.Interval) []model.Interval {
	sorted := make([]model.Interval, 0, len(in))
	for _, iv := range in {
		if !iv.Empty() {
			sorted = append(sorted, iv)
		}
	}
	slices.SortFunc(sorted, func(a, b model.Interval) int {
		return a.Start.Compare(b.Start)
	})

	out := make([]model.Interval, 0, len(sorted))
	for _, iv := range sorted {
		if n := len(out); n > 0 && !iv.Start.After(out[n-1].End) {
			if iv.End.After(out[n-1].End) {
				out[n-1].End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// Subtract removes every instant covered by remove from base.
func Subtract(base, remove []model.Interval) []model.Interval {
	base = Normalize(base)
	remove = Normalize(remove)

	var out []model.Interval
	j := 0
	for _, iv := range base {
		cur := iv
		for j < len(remove) && !remove[j].End.After(cur.Start) {
			j++
		}
		for k := j; k < len(remove) && remove[k].Start.Before(cur.End); k++ {
			r := remove[k]
			if r.Start.After(cur.Start) {
				out = append(out, model.Interval{Start: cur.Start, End: r.Start})
			}
			if r.End.After(cur.Start) {
				cur.Start = r.End
			}
			if !cur.End.After(cur.Start) {
				break
			}
		}
		if !cur.Empty() {
			out = append(out, cur)
		}
	}
	return out
}

// Intersect returns the instants covered by both a and b.
func Intersect(a, b []model.Interval) []model.Interval {
	a = Normalize(a)
	b = Normalize(b)

	var out []model.Interval
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		start := later(a[i].Start, b[j].Start)
		end := earlier(a[i].End, b[j].End)
		if start.Before(end) {
			out = append(out, model.Interval{Start: start, End: end})
		}
		if a[i].End.Before(b[j].End) {
			i++
		} else {
			j++
		}
	}
	return out
}

// Discretize cuts each free interval into consecutive slots of length d,
// aligned to the interval start. A trailing remainder shorter than d is
// dropped.
func Discretize(free []model.Interval, d time.Duration) []model.Slot {
	if d <= 0 {
		return nil
	}
	var out []model.Slot
	for _, iv := range Normalize(free) {
		for start := iv.Start; !start.Add(d).After(iv.End); start = start.Add(d) {
			out = append(out, model.Slot{Start: start, End: start.Add(d)})
		}
	}
	return out
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
