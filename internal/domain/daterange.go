package domain

import "time"

const DefaultRangeDays = 30

// Preset windows offered by the date picker
var DatePresets = []int{7, 30, 90, 365}

// DateRange is the active reporting window. Start <= End is expected but
// not enforced here.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PresetRange returns [now - days, now]
func PresetRange(now time.Time, days int) DateRange {
	return DateRange{
		Start: now.Add(-time.Duration(days) * 24 * time.Hour),
		End:   now,
	}
}

func DefaultDateRange(now time.Time) DateRange {
	return PresetRange(now, DefaultRangeDays)
}

func (r DateRange) Ordered() bool {
	return !r.Start.After(r.End)
}
