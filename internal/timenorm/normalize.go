// Package timenorm converts caller-supplied time inputs into the canonical
// form used by the cache pipeline: an ordered slice of instants tagged UTC.
//
// Accepted inputs form a closed set: time.Time, types.Date, string, and the
// slices []time.Time, []types.Date, []string, []any whose elements are in the
// scalar set. Anything else is rejected with ErrCodeInputType.
package timenorm

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"

	"didbase/internal/types"
)

// Normalize flattens v into a slice of UTC-tagged instants, preserving order.
//
// With tzaware set, zoned instants are converted to UTC. Otherwise the wall
// clock reading is kept and re-tagged as UTC, matching callers that already
// express times in UTC but build them in the machine's local zone.
func Normalize(v any, tzaware bool) ([]time.Time, error) {
	out, err := appendNormalized(nil, v, tzaware)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, types.NewAppError(types.ErrCodeInputType, "time input is empty", nil)
	}
	return out, nil
}

func appendNormalized(dst []time.Time, v any, tzaware bool) ([]time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return append(dst, toUTC(x, tzaware)), nil
	case *time.Time:
		if x == nil {
			return nil, inputTypeError(v)
		}
		return append(dst, toUTC(*x, tzaware)), nil
	case types.Date:
		return append(dst, x.Midnight()), nil
	case string:
		t, err := ParseText(x)
		if err != nil {
			return nil, err
		}
		return append(dst, toUTC(t, tzaware)), nil
	case []time.Time:
		for _, t := range x {
			dst = append(dst, toUTC(t, tzaware))
		}
		return dst, nil
	case []types.Date:
		for _, d := range x {
			dst = append(dst, d.Midnight())
		}
		return dst, nil
	case []string:
		for _, s := range x {
			var err error
			if dst, err = appendNormalized(dst, s, tzaware); err != nil {
				return nil, err
			}
		}
		return dst, nil
	case []any:
		for _, e := range x {
			var err error
			if dst, err = appendNormalized(dst, e, tzaware); err != nil {
				return nil, err
			}
		}
		return dst, nil
	default:
		return nil, inputTypeError(v)
	}
}

// ParseText parses a textual timestamp in any of the layouts understood by
// dateparse. Text without a zone is read as UTC.
func ParseText(s string) (time.Time, error) {
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, types.NewAppErrorWithDetails(
			types.ErrCodeInputType,
			fmt.Sprintf("cannot parse %q as a timestamp", s),
			err,
			map[string]any{"input": s},
		)
	}
	return t, nil
}

func toUTC(t time.Time, tzaware bool) time.Time {
	if tzaware {
		return t.UTC()
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func inputTypeError(v any) error {
	return types.NewAppErrorWithDetails(
		types.ErrCodeInputType,
		fmt.Sprintf("%v (%T) must be representable as a timestamp", v, v),
		nil,
		map[string]any{"type": fmt.Sprintf("%T", v)},
	)
}
