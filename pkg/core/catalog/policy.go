package catalog

import (
	"sort"
	"strings"
	"time"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"
)

// Cadence is the expected filing frequency of a filing type.
type Cadence string

const (
	CadenceQuarterly Cadence = "quarterly"
	CadenceAnnual    Cadence = "annual"
	CadenceGap       Cadence = "gap"
)

// DefaultGapDays is the generic policy threshold.
const DefaultGapDays = 30

// DefaultCadences maps the periodic report types to their cadence. Types not
// listed use the generic gap policy.
func DefaultCadences() map[string]Cadence {
	return map[string]Cadence{
		"10-Q":       CadenceQuarterly,
		"FILING_10Q": CadenceQuarterly,
		"10-K":       CadenceAnnual,
		"FILING_10K": CadenceAnnual,
	}
}

// Policy turns the filing dates already on hand into missing date ranges
// for the inclusive window [start, end].
type Policy interface {
	Missing(existing []time.Time, start, end time.Time) []models.MissingRange
}

// QuarterlyPolicy reports every calendar quarter in the window without a filing.
type QuarterlyPolicy struct {
	// Clip limits ranges to the window instead of full calendar quarters.
	Clip bool
}

func (p QuarterlyPolicy) Missing(existing []time.Time, start, end time.Time) []models.MissingRange {
	have := make(map[[2]int]bool, len(existing))
	for _, d := range existing {
		have[[2]int{d.Year(), quarterOf(d)}] = true
	}

	var out []models.MissingRange
	y, q := start.Year(), quarterOf(start)
	lastY, lastQ := end.Year(), quarterOf(end)
	for y < lastY || (y == lastY && q <= lastQ) {
		if !have[[2]int{y, q}] {
			qStart := civilDate(y, time.Month(3*q-2), 1)
			qEnd := qStart.AddDate(0, 3, -1)
			out = append(out, clipRange(models.MissingRange{Start: qStart, End: qEnd}, start, end, p.Clip))
		}
		if q++; q > 4 {
			y, q = y+1, 1
		}
	}
	return out
}

// AnnualPolicy reports every calendar year in the window without a filing.
type AnnualPolicy struct {
	Clip bool
}

func (p AnnualPolicy) Missing(existing []time.Time, start, end time.Time) []models.MissingRange {
	have := make(map[int]bool, len(existing))
	for _, d := range existing {
		have[d.Year()] = true
	}

	var out []models.MissingRange
	for y := start.Year(); y <= end.Year(); y++ {
		if have[y] {
			continue
		}
		r := models.MissingRange{Start: civilDate(y, time.January, 1), End: civilDate(y, time.December, 31)}
		out = append(out, clipRange(r, start, end, p.Clip))
	}
	return out
}

// GapPolicy reports the stretch before the first filing, every gap between
// consecutive filings longer than Days, and the stretch after the last filing.
type GapPolicy struct {
	Days int
}

func (p GapPolicy) Missing(existing []time.Time, start, end time.Time) []models.MissingRange {
	if len(existing) == 0 {
		return []models.MissingRange{{Start: start, End: end}}
	}
	days := p.Days
	if days < 1 {
		days = DefaultGapDays
	}

	dates := append([]time.Time(nil), existing...)
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var out []models.MissingRange
	if start.Before(dates[0]) {
		out = append(out, models.MissingRange{Start: start, End: dates[0].AddDate(0, 0, -1)})
	}
	for i := 0; i+1 < len(dates); i++ {
		if daysBetween(dates[i], dates[i+1]) > days {
			out = append(out, models.MissingRange{Start: dates[i].AddDate(0, 0, 1), End: dates[i+1].AddDate(0, 0, -1)})
		}
	}
	if last := dates[len(dates)-1]; last.Before(end) {
		out = append(out, models.MissingRange{Start: last.AddDate(0, 0, 1), End: end})
	}
	return out
}

// PolicyFor picks the policy for a filing type from a cadence map.
func PolicyFor(filingType string, cadences map[string]Cadence, gapDays int, clip bool) Policy {
	switch cadences[strings.TrimSpace(filingType)] {
	case CadenceQuarterly:
		return QuarterlyPolicy{Clip: clip}
	case CadenceAnnual:
		return AnnualPolicy{Clip: clip}
	}
	return GapPolicy{Days: gapDays}
}

func quarterOf(d time.Time) int {
	return (int(d.Month())-1)/3 + 1
}

func civilDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// civil drops the clock part of t, keeping its calendar date.
func civil(t time.Time) time.Time {
	return civilDate(t.Year(), t.Month(), t.Day())
}

func daysBetween(a, b time.Time) int {
	return int(civil(b).Sub(civil(a)).Hours() / 24)
}

func clipRange(r models.MissingRange, start, end time.Time, clip bool) models.MissingRange {
	if !clip {
		return r
	}
	if r.Start.Before(start) {
		r.Start = start
	}
	if r.End.After(end) {
		r.End = end
	}
	return r
}
