// Package stats derives reading statistics by folding the reading-progress
// history. Everything here is a pure function over caller-supplied rows; the
// storage backend is never queried directly.
package stats

import (
	"time"

	"github.com/codexbooks/codex/pkg/models"
)

type Totals struct {
	TotalTime  int // minutes
	TotalPages int
}

// Sum folds the session log into overall time and page totals.
func Sum(rows []*models.ReadingProgress) Totals {
	var totals Totals
	for _, rp := range rows {
		totals.TotalTime += rp.TimeSpent
		totals.TotalPages += rp.PagesRead
	}
	return totals
}

type DayTotal struct {
	Day       time.Time
	PagesRead int
	TimeSpent int
}

// PerDay groups sessions by UTC calendar day, summing both fields per group.
// Groups appear in first-seen order; callers sort if they need an order.
func PerDay(rows []*models.ReadingProgress) []DayTotal {
	index := map[time.Time]int{}
	var days []DayTotal
	for _, rp := range rows {
		day := truncateToDay(rp.Date)
		i, ok := index[day]
		if !ok {
			i = len(days)
			index[day] = i
			days = append(days, DayTotal{Day: day})
		}
		days[i].PagesRead += rp.PagesRead
		days[i].TimeSpent += rp.TimeSpent
	}
	return days
}

type Streaks struct {
	Current int
	Longest int
}

// ComputeStreaks reports consecutive-day reading runs. The current streak
// counts back from today, or from yesterday when today has no session yet.
func ComputeStreaks(rows []*models.ReadingProgress, today time.Time) Streaks {
	active := map[time.Time]bool{}
	for _, rp := range rows {
		active[truncateToDay(rp.Date)] = true
	}

	var streaks Streaks

	start := truncateToDay(today)
	if !active[start] {
		start = start.AddDate(0, 0, -1)
	}
	for day := start; active[day]; day = day.AddDate(0, 0, -1) {
		streaks.Current++
	}

	for day := range active {
		if active[day.AddDate(0, 0, -1)] {
			continue // not the start of a run
		}
		run := 0
		for d := day; active[d]; d = d.AddDate(0, 0, 1) {
			run++
		}
		if run > streaks.Longest {
			streaks.Longest = run
		}
	}

	return streaks
}

// LibraryCounts reports how many books the library holds and how many of them
// have been read to completion.
func LibraryCounts(books []*models.Book) (total, completed int) {
	for _, b := range books {
		total++
		if b.IsCompleted() {
			completed++
		}
	}
	return total, completed
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
