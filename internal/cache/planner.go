// Package cache implements the on-disk monthly cache: planning which calendar
// month units cover a request, judging whether a cached artifact can be
// reused, and resolving deterministic file paths for each unit.
package cache

import (
	"fmt"
	"sort"
	"time"

	"didbase/internal/types"
)

// Plan computes the ordered, deduplicated set of monthly fetch units covering
// [min(times), min(max(times), now)].
//
// It returns the clipped upper bound alongside the units so the caller can
// judge freshness against it. A request that starts after now fails with
// ErrCodeFutureRequest, since no forecast data can be served.
func Plan(times []time.Time, station string, dmuf int, now time.Time) ([]types.FetchUnit, time.Time, error) {
	if len(times) == 0 {
		return nil, time.Time{}, types.NewAppError(types.ErrCodeInputType, "no timestamps to plan", nil)
	}

	tMin, tMax := times[0], times[0]
	for _, t := range times[1:] {
		if t.Before(tMin) {
			tMin = t
		}
		if t.After(tMax) {
			tMax = t
		}
	}

	if tMin.After(now) {
		return nil, time.Time{}, types.NewAppErrorWithDetails(
			types.ErrCodeFutureRequest,
			"retrieval of future (forecast) data is not supported",
			nil,
			map[string]any{"requested_from": tMin.Format(time.RFC3339), "now": now.Format(time.RFC3339)},
		)
	}
	if tMax.After(now) {
		tMax = now
	}

	type monthKey struct {
		year  int
		month time.Month
	}
	seen := make(map[monthKey]struct{})
	var units []types.FetchUnit

	// Walk first-of-month boundaries from tMin's month through tMax's month.
	for y := tMin.Year(); y <= tMax.Year(); y++ {
		first, last := time.January, time.December
		if y == tMin.Year() {
			first = tMin.Month()
		}
		if y == tMax.Year() {
			last = tMax.Month()
		}
		for m := first; m <= last; m++ {
			k := monthKey{year: y, month: m}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			units = append(units, types.NewFetchUnit(station, y, m, dmuf))
		}
	}

	sort.Slice(units, func(i, j int) bool {
		if units[i].Station != units[j].Station {
			return units[i].Station < units[j].Station
		}
		return units[i].PeriodStart.Before(units[j].PeriodStart)
	})

	return units, tMax, nil
}

// FreshnessBound is the instant a unit's artifact must postdate to be reused:
// the end of the unit's month, or tMax when the request ends inside the month.
func FreshnessBound(u types.FetchUnit, tMax time.Time) time.Time {
	if tMax.Before(u.PeriodEnd) {
		return tMax
	}
	return u.PeriodEnd
}

// ValidateStation rejects station codes that cannot be used as a file stem.
// The code is otherwise used verbatim; case is left to the remote service.
func ValidateStation(station string) error {
	if station == "" {
		return types.NewAppError(types.ErrCodeInvalidParam, "station code is required", nil)
	}
	for _, r := range station {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return types.NewAppErrorWithDetails(
				types.ErrCodeInvalidParam,
				fmt.Sprintf("station code %q must be alphanumeric", station),
				nil,
				map[string]any{"station": station},
			)
		}
	}
	return nil
}
