package geolife

import (
	"sort"
	"time"

	"geolife2one/internal/config"
)

const dayLayout = "2006-01-02"

// Restricts the fixes kept from the dataset.
type Filter struct {
	Date string // keep only fixes on this day (YYYY-MM-DD) when set
	Bounds *config.Bounds // keep only fixes inside these bounds when set
	Location *time.Location // zone the day is evaluated in; UTC when nil
}

// Apply returns the fixes that pass the filter, keeping their order. Fixes off the globe are always
// dropped.
func (filter Filter) Apply(fixes []Fix) []Fix {
	kept := fixes[:0:0]
	for _, fix := range fixes {
		if !fix.Valid() {
			continue
		}
		if filter.Date != "" && Day(fix.Time, filter.Location) != filter.Date {
			continue
		}
		if filter.Bounds != nil && !filter.Bounds.Contains(fix.Latitude, fix.Longitude) {
			continue
		}
		kept = append(kept, fix)
	}
	return kept
}

// Day formats the calendar day of t in loc (UTC when loc is nil).
func Day(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dayLayout)
}

// Splits fixes into calendar days. Within a day fixes are sorted by time.
// fixes: the fixes to split
// loc: the zone days are evaluated in; UTC when nil
// Returns the fixes per day keyed by YYYY-MM-DD and the sorted list of days
func GroupByDay(fixes []Fix, loc *time.Location) (map[string][]Fix, []string) {
	days := make(map[string][]Fix)
	for _, fix := range fixes {
		day := Day(fix.Time, loc)
		days[day] = append(days[day], fix)
	}

	keys := make([]string, 0, len(days))
	for day, dayFixes := range days {
		sort.SliceStable(dayFixes, func(i int, j int) bool {
			return dayFixes[i].Time.Before(dayFixes[j].Time)
		})
		keys = append(keys, day)
	}
	sort.Strings(keys)
	return days, keys
}
