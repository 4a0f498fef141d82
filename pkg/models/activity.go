package models

import "time"

// DayFormat is the calendar-date key format for activity entries.
// ISO dates sort lexicographically in chronological order.
const DayFormat = "2006-01-02"

// ActivityDay is one calendar day's view/download counters for a
// dataset. Counts are cumulative snapshots: the daily roll-forward
// seeds each new day from the latest prior day's values.
type ActivityDay struct {
	DatasetID string `json:"dataset_id"`
	Day       string `json:"day"`
	Views     int64  `json:"views"`
	Downloads int64  `json:"downloads"`
}

// ActivitySeries is the chart-friendly projection of a dataset's
// activity: parallel arrays sorted by date ascending.
type ActivitySeries struct {
	Dates     []string `json:"dates"`
	Views     []int64  `json:"views"`
	Downloads []int64  `json:"downloads"`
}

// NewActivitySeries converts day rows (already sorted by day
// ascending) into parallel arrays.
func NewActivitySeries(days []ActivityDay) ActivitySeries {
	s := ActivitySeries{
		Dates:     make([]string, 0, len(days)),
		Views:     make([]int64, 0, len(days)),
		Downloads: make([]int64, 0, len(days)),
	}
	for _, d := range days {
		s.Dates = append(s.Dates, d.Day)
		s.Views = append(s.Views, d.Views)
		s.Downloads = append(s.Downloads, d.Downloads)
	}
	return s
}

// Today returns the current calendar date key.
func Today(now time.Time) string {
	return now.Format(DayFormat)
}
