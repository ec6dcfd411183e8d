// Package schedule derives bookable consultation slots from a doctor's
// recurring daily availability window. It is pure: output depends only on
// the window, the set of booked ranges, and the evaluation instant, which
// keeps slot listing and booking validation on the exact same predicate.
package schedule

import (
	"time"
)

const (
	// SlotDuration is the fixed length of every consultation.
	SlotDuration = 30 * time.Minute

	// DefaultHorizonDays is how many calendar days of slots are offered,
	// counting today.
	DefaultHorizonDays = 4

	// DayKeyFormat keys slot lists per calendar day.
	DayKeyFormat = "2006-01-02"

	labelFormat = "3:04 PM"
)

// TimeRange is a half-open [Start, End) interval.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Slot is a candidate bookable interval.
type Slot struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Formatted string    `json:"formatted"`
	Day       string    `json:"day"`
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Endpoints are exclusive: back-to-back ranges sharing a boundary instant do
// not overlap. This is the single conflict predicate for both slot
// generation and booking.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// OverlapsAny reports whether [start, end) intersects any of the ranges.
func OverlapsAny(start, end time.Time, ranges []TimeRange) bool {
	for _, r := range ranges {
		if Overlaps(start, end, r.Start, r.End) {
			return true
		}
	}
	return false
}

// DayKeys returns the horizon's day keys in calendar order starting today.
func DayKeys(now time.Time, horizonDays int) []string {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	keys := make([]string, 0, horizonDays)
	for d := 0; d < horizonDays; d++ {
		keys = append(keys, now.AddDate(0, 0, d).Format(DayKeyFormat))
	}
	return keys
}

// GenerateSlots projects the window's wall-clock start/end onto each day of
// the horizon and walks it in fixed 30-minute steps. Steps that have already
// ended, partial trailing steps, and steps overlapping a booked range are
// dropped. Every day key in the horizon is present in the result, possibly
// with an empty list.
func GenerateSlots(windowStart, windowEnd time.Time, booked []TimeRange, now time.Time, horizonDays int) map[string][]Slot {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	out := make(map[string][]Slot, horizonDays)

	for d := 0; d < horizonDays; d++ {
		day := now.AddDate(0, 0, d)
		key := day.Format(DayKeyFormat)
		slots := []Slot{}

		dayStart := onDay(day, windowStart)
		dayEnd := onDay(day, windowEnd)

		for curr := dayStart; !curr.Add(SlotDuration).After(dayEnd); curr = curr.Add(SlotDuration) {
			next := curr.Add(SlotDuration)
			if !next.After(now) {
				continue
			}
			if OverlapsAny(curr, next, booked) {
				continue
			}
			slots = append(slots, Slot{
				StartTime: curr,
				EndTime:   next,
				Formatted: curr.Format(labelFormat) + " - " + next.Format(labelFormat),
				Day:       key,
			})
		}
		out[key] = slots
	}
	return out
}

// onDay applies clock's wall-clock time of day to day's calendar date.
func onDay(day, clock time.Time) time.Time {
	return time.Date(
		day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), 0, 0,
		day.Location(),
	)
}
