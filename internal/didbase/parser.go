package didbase

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"didbase/internal/types"
)

// RejectReason explains why a line did not produce a measurement.
type RejectReason string

const (
	ReasonNone         RejectReason = ""
	ReasonBlank        RejectReason = "blank"
	ReasonComment      RejectReason = "comment"
	ReasonFieldCount   RejectReason = "field_count"
	ReasonNonNumeric   RejectReason = "non_numeric"
	ReasonNonFinite    RejectReason = "non_finite"
	ReasonBadTimestamp RejectReason = "bad_timestamp"
)

// LineOutcome is the result of validating a single line.
type LineOutcome struct {
	Accepted bool
	Reason   RejectReason
	Row      types.Measurement
}

// ParseResult holds the rows and provenance extracted from one raw response.
type ParseResult struct {
	Rows       []types.Measurement
	Station    string
	Header     []string
	Location   string
	Instrument string
	Rejected   map[RejectReason]int
	LinesRead  int
}

// timestampLayouts are tried in order for the time column.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
}

// ValidateLine decides whether a single line is a well-formed data row.
// Comment and blank lines are reported as rejected with their own reasons;
// rejection is a data-quality outcome, never an error.
func ValidateLine(line string) LineOutcome {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return LineOutcome{Reason: ReasonBlank}
	}
	if strings.HasPrefix(trimmed, "#") {
		return LineOutcome{Reason: ReasonComment}
	}

	words := strings.Fields(trimmed)
	if len(words) != fieldCount {
		return LineOutcome{Reason: ReasonFieldCount}
	}

	idx := [...]int{idxCS, idxFoF2, idxMUFD, idxHmF2, idxTEC, idxB0}
	var vals [len(idx)]float64
	for i, pos := range idx {
		v, err := strconv.ParseFloat(words[pos], 64)
		if err != nil {
			return LineOutcome{Reason: ReasonNonNumeric}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return LineOutcome{Reason: ReasonNonFinite}
		}
		vals[i] = v
	}

	ts, ok := parseTimestamp(words[idxTime])
	if !ok {
		return LineOutcome{Reason: ReasonBadTimestamp}
	}

	return LineOutcome{
		Accepted: true,
		Row: types.Measurement{
			Time: ts,
			CS:   vals[0],
			FoF2: vals[1],
			MUFD: vals[2],
			HmF2: vals[3],
			TEC:  vals[4] * TECScale,
			B0:   vals[5],
		},
	}
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Parse reads a raw DIDBase response. Malformed lines are counted and
// skipped; only read errors from r are returned.
func Parse(r io.Reader) (*ParseResult, error) {
	res := &ParseResult{Rejected: make(map[RejectReason]int)}
	inHeader := true

	br := bufio.NewReader(r)
	for {
		raw, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("reading raw text: %w", err)
		}
		if raw == "" {
			break
		}
		line := strings.TrimRight(raw, "\r\n")
		res.LinesRead++

		if isComment(line) {
			res.scrapeHeader(line, inHeader)
			res.Rejected[ReasonComment]++
			continue
		}
		inHeader = false

		out := ValidateLine(line)
		if !out.Accepted {
			res.Rejected[out.Reason]++
			continue
		}
		res.Rows = append(res.Rows, out.Row)
	}
	return res, nil
}

// RejectedCount returns the number of non-comment, non-blank lines dropped.
func (p *ParseResult) RejectedCount() int {
	n := 0
	for reason, c := range p.Rejected {
		if reason == ReasonComment || reason == ReasonBlank {
			continue
		}
		n += c
	}
	return n
}

func isComment(line string) bool {
	return strings.HasPrefix(strings.TrimLeft(line, " \t"), "#")
}

func (p *ParseResult) scrapeHeader(line string, leading bool) {
	line = strings.ToValidUTF8(line, "\uFFFD")
	if leading && len(p.Header) < maxHeaderLines {
		p.Header = append(p.Header, line)
	}

	body := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))

	if p.Station == "" {
		if i := strings.Index(body, stationMarker); i >= 0 {
			if rest := strings.Fields(body[i+len(stationMarker):]); len(rest) > 0 {
				p.Station = strings.Trim(rest[0], ":,")
			}
		}
	}
	if v, ok := headerValue(body, "Location:"); ok && p.Location == "" {
		p.Location = v
	}
	if v, ok := headerValue(body, "Instrument:"); ok && p.Instrument == "" {
		p.Instrument = v
	}
}

func headerValue(body, key string) (string, bool) {
	if !strings.HasPrefix(body, key) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(body, key)), true
}
