// Package series holds time-indexed measurement columns and implements the
// merge and nearest-timestamp selection used to build retrieval results.
package series

import (
	"fmt"
	"strings"
	"time"
)

// Field is one named column of values aligned with Series.Times.
type Field struct {
	Name        string
	Units       string
	Description string
	Values      []float64
}

// Series is a time-ordered table of measurement fields with attributes.
type Series struct {
	Times  []time.Time
	Fields []Field
	Attrs  map[string]string

	// Requested is set by SelectNearest: Requested[i] is the caller time that
	// selected row i.
	Requested []time.Time
}

// Len returns the number of observations.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Times)
}

// Field returns the named field, or nil.
func (s *Series) Field(name string) *Field {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// Value returns the named field's value at row i.
func (s *Series) Value(name string, i int) (float64, bool) {
	f := s.Field(name)
	if f == nil || i < 0 || i >= len(f.Values) {
		return 0, false
	}
	return f.Values[i], true
}

// Concat appends parts along the time axis in the given order. Field layout
// and attributes come from the first part; every part must share its field
// names. Overlapping timestamps are kept as-is.
func Concat(parts []*Series) (*Series, error) {
	out := &Series{Attrs: map[string]string{}}
	if len(parts) == 0 {
		return out, nil
	}

	first := parts[0]
	for k, v := range first.Attrs {
		out.Attrs[k] = v
	}
	out.Fields = make([]Field, len(first.Fields))
	for i, f := range first.Fields {
		out.Fields[i] = Field{Name: f.Name, Units: f.Units, Description: f.Description}
	}

	total := 0
	for _, p := range parts {
		total += p.Len()
	}
	out.Times = make([]time.Time, 0, total)
	for i := range out.Fields {
		out.Fields[i].Values = make([]float64, 0, total)
	}

	for n, p := range parts {
		if len(p.Fields) != len(out.Fields) {
			return nil, fmt.Errorf("series part %d has %d fields, want %d", n, len(p.Fields), len(out.Fields))
		}
		for i, f := range p.Fields {
			if f.Name != out.Fields[i].Name {
				return nil, fmt.Errorf("series part %d field %d is %q, want %q", n, i, f.Name, out.Fields[i].Name)
			}
			if len(f.Values) != len(p.Times) {
				return nil, fmt.Errorf("series part %d field %q has %d values for %d times", n, f.Name, len(f.Values), len(p.Times))
			}
			out.Fields[i].Values = append(out.Fields[i].Values, f.Values...)
		}
		out.Times = append(out.Times, p.Times...)
	}
	return out, nil
}

// NearestIndex returns the index of the observation closest to t. Ties go to
// the lowest index. It returns -1 for an empty series.
func (s *Series) NearestIndex(t time.Time) int {
	best := -1
	var bestDist time.Duration
	for i, ti := range s.Times {
		d := absDuration(ti.Sub(t))
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// SelectNearest returns a new series with one row per requested time, each
// the observation nearest to that time. Duplicated requests yield duplicated
// rows. An empty series is returned unchanged.
func (s *Series) SelectNearest(times []time.Time) *Series {
	if s.Len() == 0 {
		return s
	}

	out := &Series{
		Times:     make([]time.Time, len(times)),
		Fields:    make([]Field, len(s.Fields)),
		Attrs:     make(map[string]string, len(s.Attrs)),
		Requested: make([]time.Time, len(times)),
	}
	for k, v := range s.Attrs {
		out.Attrs[k] = v
	}
	for i, f := range s.Fields {
		out.Fields[i] = Field{Name: f.Name, Units: f.Units, Description: f.Description, Values: make([]float64, len(times))}
	}

	for r, t := range times {
		idx := s.NearestIndex(t)
		out.Times[r] = s.Times[idx]
		out.Requested[r] = t
		for i := range s.Fields {
			out.Fields[i].Values[r] = s.Fields[i].Values[idx]
		}
	}
	return out
}

// Assemble merges per-unit series in order and selects the observations
// nearest to the requested times.
func Assemble(parts []*Series, requested []time.Time) (*Series, error) {
	merged, err := Concat(parts)
	if err != nil {
		return nil, err
	}
	if merged.Len() == 0 {
		return merged, nil
	}
	return merged.SelectNearest(requested), nil
}

// String renders the series as an aligned text table.
func (s *Series) String() string {
	var b strings.Builder
	if st := s.Attrs["station"]; st != "" {
		fmt.Fprintf(&b, "station: %s\n", st)
	}
	fmt.Fprintf(&b, "%-24s", "time")
	for _, f := range s.Fields {
		fmt.Fprintf(&b, " %14s", fmt.Sprintf("%s[%s]", f.Name, f.Units))
	}
	b.WriteByte('\n')
	for i, t := range s.Times {
		fmt.Fprintf(&b, "%-24s", t.UTC().Format(time.RFC3339))
		for _, f := range s.Fields {
			fmt.Fprintf(&b, " %14.6g", f.Values[i])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
