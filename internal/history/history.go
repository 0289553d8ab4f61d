// Package history derives per-category cry statistics from a set of
// recordings. It is a pure function of the fetched data: the caller filters
// by baby and time window, then aggregates counts over the canonical label
// list so charts always show every known category.
package history

import (
	"sort"
	"time"

	"letbabytalk/internal/model"
)

// Range selects the time window recordings are restricted to.
type Range string

const (
	RangeDay    Range = "day"
	RangeWeek   Range = "week"
	RangeMonth  Range = "month"
	RangeCustom Range = "custom"
)

// Valid reports whether r names one of the defined ranges.
func (r Range) Valid() bool {
	switch r {
	case RangeDay, RangeWeek, RangeMonth, RangeCustom:
		return true
	}
	return false
}

// Filter describes which recordings participate in the aggregation.
// BabyProfileID nil means all babies. From/To are only read for RangeCustom
// and are interpreted at day granularity. Now anchors the relative ranges.
type Filter struct {
	Range         Range
	From          time.Time
	To            time.Time
	BabyProfileID *uint
	Now           time.Time
}

// Window returns the inclusive [start, end] time window for the filter.
// day, week and month run from the start of the current calendar unit
// through now; week starts on Sunday. A custom range spans from 00:00:00 of
// From through 23:59:59 of To, or of From itself when To is zero.
func (f Filter) Window() (time.Time, time.Time) {
	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}

	switch f.Range {
	case RangeWeek:
		start := startOfDay(now).AddDate(0, 0, -int(now.Weekday()))
		return start, now
	case RangeMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return start, now
	case RangeCustom:
		to := f.To
		if to.IsZero() {
			to = f.From
		}
		return startOfDay(f.From), endOfDay(to)
	default:
		return startOfDay(now), now
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// FilterRecordings restricts recordings to the selected baby first, then to
// the time window. Both window endpoints are inclusive.
func FilterRecordings(recordings []model.Recording, f Filter) []model.Recording {
	start, end := f.Window()

	var out []model.Recording
	for _, r := range recordings {
		if f.BabyProfileID != nil {
			if r.BabyProfileID == nil || *r.BabyProfileID != *f.BabyProfileID {
				continue
			}
		}
		t := r.RecordedAt
		if t.Before(start) || t.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Label returns the category a recording counts toward, defaulting to
// "unknown" when the analysis carries no class.
func Label(r model.Recording) string {
	if r.AnalysisResult.CryType == "" {
		return model.UnknownClass
	}
	return r.AnalysisResult.CryType
}

// CategoryCount is one chart entry.
type CategoryCount struct {
	ClassName  string  `json:"className"`
	Title      string  `json:"title"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Summary is the aggregated view over the filtered recordings.
type Summary struct {
	Total            int             `json:"total"`
	Categories       []CategoryCount `json:"categories"`
	TopCategory      string          `json:"topCategory"`
	CategoriesUsed   int             `json:"categoriesUsed"`
	TotalCategories  int             `json:"totalCategories"`
	AveragePerActive float64         `json:"averagePerActive"`
}

// Aggregate filters the recordings and groups them by label. Every canonical
// category appears in the output, zero counts included. Entries are sorted by
// count descending, ties broken by display title ascending. titles maps class
// names to display titles; classes without an entry fall back to the class
// name itself.
func Aggregate(recordings []model.Recording, f Filter, titles map[string]string) Summary {
	filtered := FilterRecordings(recordings, f)

	counts := make(map[string]int, len(model.CanonicalClasses))
	for _, class := range model.CanonicalClasses {
		counts[class] = 0
	}
	for _, r := range filtered {
		counts[Label(r)]++
	}

	total := len(filtered)
	categories := make([]CategoryCount, 0, len(counts))
	used := 0
	for class, count := range counts {
		title := titles[class]
		if title == "" {
			title = class
		}
		entry := CategoryCount{ClassName: class, Title: title, Count: count}
		if total > 0 {
			entry.Percentage = float64(count) / float64(total) * 100
		}
		if count > 0 {
			used++
		}
		categories = append(categories, entry)
	}

	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Count != categories[j].Count {
			return categories[i].Count > categories[j].Count
		}
		return categories[i].Title < categories[j].Title
	})

	summary := Summary{
		Total:           total,
		Categories:      categories,
		CategoriesUsed:  used,
		TotalCategories: len(categories),
	}
	if len(categories) > 0 {
		summary.TopCategory = categories[0].ClassName
	}
	divisor := used
	if divisor < 1 {
		divisor = 1
	}
	summary.AveragePerActive = float64(total) / float64(divisor)
	return summary
}
