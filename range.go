package qbrules

import (
	"iter"
	"time"
)

// UnitRange expands the value into its ordered sequence of unit contexts,
// one per incremental billable unit:
//
//   - quantity N yields N snapshots with value 1..N and total_value N.
//   - date_range yields one snapshot per day, each covering the cumulative
//     sub-range from the start, with total_days/total_hours constants and a
//     days counter 1..N.
//   - datetime_range_hour yields one snapshot per started hour.
//   - datetime_range_day yields one snapshot per started day; a span of 24
//     hours or less collapses to a single unit.
//   - a true boolean yields one snapshot, a false one yields none.
//   - scalar types yield their single snapshot.
//
// Empty values yield nothing. The sequence is lazy, finite, and meant to be
// consumed once per evaluation.
func (v OptionValue) UnitRange() iter.Seq[Context] {
	return func(yield func(Context) bool) {
		if v.empty {
			return
		}

		switch v.typ {
		case TypeQuantity:
			n := v.val.(int)
			for i := 1; i <= n; i++ {
				c := v.snapshot(i, false)
				c["total_value"] = n
				if !yield(c) {
					return
				}
			}

		case TypeDateRange:
			r := v.val.(dateRange)
			span := r.end.Time().Sub(r.start.Time())
			totalHours := int(span.Seconds() / hourSeconds)
			totalDays := int(span.Hours()/24) + 1
			for i := 0; i < totalDays; i++ {
				c := v.snapshot(dateRange{start: r.start, end: r.start.AddDays(i)}, false)
				c["total_days"] = totalDays
				c["total_hours"] = totalHours
				if !yield(c) {
					return
				}
			}

		case TypeDatetimeRangeDay:
			r := v.val.(datetimeRange)
			span := r.end.Sub(r.start)
			totalHours := floorHours(span)
			totalDays := floorDays(span)
			steps := totalDays
			if totalHours <= 24 {
				steps = 1
			}
			for i := 0; i < steps; i++ {
				day := r.start.AddDate(0, 0, i)
				c := v.snapshot(datetimeRange{start: r.start, end: day}, false)
				c["total_days"] = totalDays
				c["total_hours"] = totalHours
				// Probe 61 seconds past the day boundary so the grace rule
				// decides whether a trailing partial day counts. Preserved
				// exactly; the billing scenarios pin it.
				c["days"] = floorDays(day.Add(61 * time.Second).Sub(r.start))
				if !yield(c) {
					return
				}
			}

		case TypeDatetimeRangeHour:
			r := v.val.(datetimeRange)
			span := r.end.Sub(r.start)
			totalHours := floorHours(span)
			totalDays := floorDays(span)
			for h := 1; h <= totalHours; h++ {
				end := r.start.Add(time.Duration(h) * time.Hour)
				c := v.snapshot(datetimeRange{start: r.start, end: end}, false)
				c["total_days"] = totalDays
				c["total_hours"] = totalHours
				if !yield(c) {
					return
				}
			}

		default:
			yield(v.snapshot(v.val, false))
		}
	}
}
