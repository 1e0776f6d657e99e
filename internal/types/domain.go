package types

import (
	"fmt"
	"time"
)

// DefaultDMUF is the ground distance (km) used by the remote service for
// maximum usable frequency calculations when the caller does not set one.
const DefaultDMUF = 3000

// Date is a calendar date without a time of day. It normalizes to midnight UTC.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate constructs a Date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// Midnight returns the first instant of the date in UTC.
func (d Date) Midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// FetchUnit identifies one cacheable slice of station data: a single calendar
// month [PeriodStart, PeriodEnd) at a given DMUF distance.
type FetchUnit struct {
	Station     string
	PeriodStart time.Time
	PeriodEnd   time.Time
	DMUF        int
}

// NewFetchUnit builds the unit covering the given month.
// December rolls over to January of the following year.
func NewFetchUnit(station string, year int, month time.Month, dmuf int) FetchUnit {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return FetchUnit{
		Station:     station,
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 1, 0),
		DMUF:        dmuf,
	}
}

// Stem is the deterministic cache key shared by the unit's artifact and raw text.
// Format: {station}_{YYYY}{MM}_{dmuf}
func (u FetchUnit) Stem() string {
	return fmt.Sprintf("%s_%04d%02d_%d", u.Station, u.PeriodStart.Year(), int(u.PeriodStart.Month()), u.DMUF)
}

// String implements fmt.Stringer for log output.
func (u FetchUnit) String() string {
	return u.Stem()
}

// Measurement is one parsed observation from a station.
// TEC is stored in physical units (m^-2), already scaled from TECU.
type Measurement struct {
	Time time.Time
	CS   float64 // autoscale confidence score in percent; 999 marks manual scaling
	FoF2 float64 // MHz
	MUFD float64 // MHz
	HmF2 float64 // km
	TEC  float64 // m^-2
	B0   float64 // km
}
