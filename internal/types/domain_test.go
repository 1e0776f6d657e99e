package types

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestNewFetchUnitPeriod(t *testing.T) {
	tests := []struct {
		name      string
		year      int
		month     time.Month
		wantStart time.Time
		wantEnd   time.Time
		wantStem  string
	}{
		{
			name:      "mid year",
			year:      2012,
			month:     time.January,
			wantStart: time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2012, 2, 1, 0, 0, 0, 0, time.UTC),
			wantStem:  "AH223_201201_3000",
		},
		{
			name:      "december rolls into next year",
			year:      2021,
			month:     time.December,
			wantStart: time.Date(2021, 12, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
			wantStem:  "AH223_202112_3000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewFetchUnit("AH223", tt.year, tt.month, DefaultDMUF)
			if !u.PeriodStart.Equal(tt.wantStart) {
				t.Errorf("PeriodStart = %v, want %v", u.PeriodStart, tt.wantStart)
			}
			if !u.PeriodEnd.Equal(tt.wantEnd) {
				t.Errorf("PeriodEnd = %v, want %v", u.PeriodEnd, tt.wantEnd)
			}
			if u.Stem() != tt.wantStem {
				t.Errorf("Stem() = %q, want %q", u.Stem(), tt.wantStem)
			}
		})
	}
}

func TestDateMidnight(t *testing.T) {
	d := NewDate(2022, time.January, 25)
	want := time.Date(2022, 1, 25, 0, 0, 0, 0, time.UTC)
	if !d.Midnight().Equal(want) {
		t.Errorf("Midnight() = %v, want %v", d.Midnight(), want)
	}
	if d.String() != "2022-01-25" {
		t.Errorf("String() = %q", d.String())
	}
}

func TestEnsureRequestID(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	if !strings.HasPrefix(id, "req_") {
		t.Errorf("generated id %q lacks req_ prefix", id)
	}
	if GetRequestID(ctx) != id {
		t.Errorf("context does not carry generated id")
	}

	ctx2, id2 := EnsureRequestID(ctx)
	if id2 != id || GetRequestID(ctx2) != id {
		t.Errorf("existing id should be preserved, got %q", id2)
	}
}

func TestLoggerFromContextFallback(t *testing.T) {
	if LoggerFromContext(context.Background(), nil) == nil {
		t.Errorf("expected slog.Default fallback")
	}
}
