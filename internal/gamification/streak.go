package gamification

import (
	"sort"
	"time"
)

// DefaultStreakThreshold is the completion percentage a day needs to count.
const DefaultStreakThreshold = 80.0

// DayCompletion is one day's completion percentage.
type DayCompletion struct {
	Date time.Time
	Rate float64
}

// Qualifies reports whether a completion percentage counts as a streak day.
func Qualifies(rate, threshold float64) bool {
	return rate >= threshold
}

// BestStreakRates returns the longest run of consecutive qualifying values in
// an already ordered sequence.
func BestStreakRates(rates []float64, threshold float64) int {
	best, run := 0, 0
	for _, r := range rates {
		if Qualifies(r, threshold) {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 0
		}
	}
	return best
}

// BestStreak returns the longest run of consecutive qualifying calendar days.
// Days are ordered by date first. A missing date counts as 0%.
func BestStreak(days []DayCompletion, threshold float64) int {
	return BestStreakRates(denseRates(days), threshold)
}

// denseRates lays days out on every calendar date from the first to the
// last, filling dates without a value with 0.
func denseRates(days []DayCompletion) []float64 {
	if len(days) == 0 {
		return nil
	}
	sorted := sortedDays(days)
	first := truncate(sorted[0].Date)
	span := daysBetween(first, sorted[len(sorted)-1].Date)
	rates := make([]float64, span+1)
	for _, d := range sorted {
		rates[daysBetween(first, d.Date)] = d.Rate
	}
	return rates
}

// CurrentStreak counts consecutive qualifying days ending at today. When today
// does not qualify yet the run ending yesterday is reported instead, since the
// day is still in progress.
func CurrentStreak(days []DayCompletion, threshold float64, today time.Time) int {
	qualified := make(map[string]bool, len(days))
	for _, d := range days {
		if Qualifies(d.Rate, threshold) {
			qualified[dayKey(d.Date)] = true
		}
	}

	day := truncate(today)
	if !qualified[dayKey(day)] {
		day = day.AddDate(0, 0, -1)
	}
	count := 0
	for qualified[dayKey(day)] {
		count++
		day = day.AddDate(0, 0, -1)
	}
	return count
}

// StreakState is the incrementally maintained streak on UserStats.
type StreakState struct {
	Current  int
	Longest  int
	LastDate *time.Time
}

// Advance records that day qualified. Recording the same day twice is a no-op;
// a qualifying day directly after LastDate extends the run, anything else
// starts a new run of one.
func (s StreakState) Advance(day time.Time) StreakState {
	day = truncate(day)
	if s.LastDate != nil {
		last := truncate(*s.LastDate)
		if !day.After(last) {
			return s
		}
		if dayAfter(last, day) {
			s.Current++
		} else {
			s.Current = 1
		}
	} else {
		s.Current = 1
	}
	if s.Current > s.Longest {
		s.Longest = s.Current
	}
	s.LastDate = &day
	return s
}

// Effective returns the current streak as of today: a run whose last
// qualifying day is older than yesterday has already been broken.
func (s StreakState) Effective(today time.Time) int {
	if s.LastDate == nil {
		return 0
	}
	yesterday := truncate(today).AddDate(0, 0, -1)
	if truncate(*s.LastDate).Before(yesterday) {
		return 0
	}
	return s.Current
}

// Recompute rebuilds a StreakState from the full daily history.
func Recompute(days []DayCompletion, threshold float64) StreakState {
	var s StreakState
	for _, d := range sortedDays(days) {
		if Qualifies(d.Rate, threshold) {
			s = s.Advance(d.Date)
		}
	}
	if best := BestStreak(days, threshold); best > s.Longest {
		s.Longest = best
	}
	return s
}

func sortedDays(days []DayCompletion) []DayCompletion {
	sorted := make([]DayCompletion, len(days))
	copy(sorted, days)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

func truncate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayAfter(prev, next time.Time) bool {
	return truncate(prev).AddDate(0, 0, 1).Equal(truncate(next))
}

func daysBetween(from, to time.Time) int {
	return int(truncate(to).Sub(truncate(from)).Hours() / 24)
}

func dayKey(t time.Time) string {
	return truncate(t).Format("2006-01-02")
}
