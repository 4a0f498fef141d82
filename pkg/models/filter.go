package models

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Fields a listing can be sorted by.
type SortField string

const (
	SortSize         SortField = "size"
	SortRowCount     SortField = "row_count"
	SortColumnCount  SortField = "column_count"
	SortCreationDate SortField = "creation_date"
	SortModifiedDate SortField = "modified_date"
)

// SortOrder is the sort direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortSpec is a single honored sort instruction.
type SortSpec struct {
	Field SortField
	Order SortOrder
}

// IntRange is an optional inclusive numeric range.
type IntRange struct {
	From *int64
	To   *int64
}

// IsSet reports whether either bound is present.
func (r IntRange) IsSet() bool { return r.From != nil || r.To != nil }

// TimeRange is an optional inclusive datetime range.
type TimeRange struct {
	From *time.Time
	To   *time.Time
}

// IsSet reports whether either bound is present.
func (r TimeRange) IsSet() bool { return r.From != nil || r.To != nil }

// FilterValues is the request-scoped set of listing filters. All
// ranges are optional; at most one sort is honored per request.
type FilterValues struct {
	Name string

	Size        IntRange
	RowCount    IntRange
	ColumnCount IntRange
	Views       IntRange
	Downloads   IntRange

	CreationDate TimeRange
	ModifiedDate TimeRange

	Sort *SortSpec
}

// sortParams lists the sort query parameters in precedence order:
// when several are supplied at once, the first non-empty one wins.
var sortParams = []struct {
	param string
	field SortField
}{
	{"sort_size", SortSize},
	{"sort_row_size", SortRowCount},
	{"sort_column_size", SortColumnCount},
	{"sort_creation_date", SortCreationDate},
	{"sort_modified_date", SortModifiedDate},
}

// ParseFilterValues builds FilterValues from listing query
// parameters. Numeric bounds are clamped to [0, MaxInt64]; date "to"
// bounds are extended by a day so the end date is inclusive of its
// whole calendar day, and date bounds never exceed tomorrow.
func ParseFilterValues(q url.Values, now time.Time) (*FilterValues, error) {
	fv := &FilterValues{
		Name: strings.TrimSpace(q.Get("name")),
	}

	var err error
	if fv.Size, err = parseIntRange(q, "size_from", "size_to"); err != nil {
		return nil, err
	}
	if fv.RowCount, err = parseIntRange(q, "row_size_from", "row_size_to"); err != nil {
		return nil, err
	}
	if fv.ColumnCount, err = parseIntRange(q, "column_size_from", "column_size_to"); err != nil {
		return nil, err
	}
	if fv.Views, err = parseIntRange(q, "views_from", "views_to"); err != nil {
		return nil, err
	}
	if fv.Downloads, err = parseIntRange(q, "downloads_from", "downloads_to"); err != nil {
		return nil, err
	}

	tomorrow := now.AddDate(0, 0, 1)
	if fv.CreationDate, err = parseTimeRange(q, "creation_date_from", "creation_date_to", tomorrow); err != nil {
		return nil, err
	}
	if fv.ModifiedDate, err = parseTimeRange(q, "modified_date_from", "modified_date_to", tomorrow); err != nil {
		return nil, err
	}

	for _, sp := range sortParams {
		raw := q.Get(sp.param)
		if raw == "" {
			continue
		}
		order, err := parseSortOrder(sp.param, raw)
		if err != nil {
			return nil, err
		}
		fv.Sort = &SortSpec{Field: sp.field, Order: order}
		break
	}

	return fv, nil
}

func parseIntRange(q url.Values, fromKey, toKey string) (IntRange, error) {
	var r IntRange
	var err error
	if r.From, err = parseBound(q, fromKey); err != nil {
		return r, err
	}
	if r.To, err = parseBound(q, toKey); err != nil {
		return r, err
	}
	return r, nil
}

func parseBound(q url.Values, key string) (*int64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid value for %s: %q", key, raw)
	}
	v = clampInt(v)
	return &v, nil
}

func clampInt(v int64) int64 {
	if v < 0 {
		return 0
	}
	if v > math.MaxInt64-1 {
		return math.MaxInt64 - 1
	}
	return v
}

func parseTimeRange(q url.Values, fromKey, toKey string, tomorrow time.Time) (TimeRange, error) {
	var r TimeRange

	from, err := parseTimeBound(q, fromKey)
	if err != nil {
		return r, err
	}
	to, err := parseTimeBound(q, toKey)
	if err != nil {
		return r, err
	}

	if from != nil {
		t := clampTime(*from, tomorrow)
		r.From = &t
	}
	if to != nil {
		// Make the "to" date inclusive of its whole calendar day.
		t := clampTime(to.AddDate(0, 0, 1), tomorrow)
		r.To = &t
	} else if from != nil {
		r.To = &tomorrow
	}

	return r, nil
}

func parseTimeBound(q url.Values, key string) (*time.Time, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{DayFormat, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid value for %s: %q", key, raw)
}

func clampTime(t, tomorrow time.Time) time.Time {
	if t.After(tomorrow) {
		return tomorrow
	}
	return t
}

func parseSortOrder(key, raw string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(raw)) {
	case SortAsc:
		return SortAsc, nil
	case SortDesc:
		return SortDesc, nil
	}
	return "", fmt.Errorf("invalid sort order for %s: %q", key, raw)
}
