/*
Package calendar provides business-day arithmetic and the company holiday
calendar.

PURPOSE:
  Pure date math with no storage dependencies. The request lifecycle uses
  this package to size usage ledger entries: an approved request debits
  BusinessHours(start, end, holidays) from the employee's balance.

KEY CONCEPTS:
  - Business day: a weekday (Mon-Fri) that is not a designated holiday.
  - DateSet: O(1) holiday membership, keyed on calendar date regardless of
    the time-of-day or location carried by the time.Time value.
  - Hours are decimal.Decimal end to end. Balances are sums of many small
    entries; binary floating point would drift.

USAGE:
  hols := calendar.NewDateSet(calendar.FederalHolidayDates(2025, 2026)...)
  hours := calendar.BusinessHours(start, end, hols)  // decimal, 8h per day

SEE ALSO:
  - holidays.go: Federal holiday generation and nth-weekday math
  - pto/service.go: Approval path consuming BusinessHours
*/
package calendar

import (
	"time"

	"github.com/shopspring/decimal"
)

// HoursPerWorkDay is the fixed length of a business day.
var HoursPerWorkDay = decimal.NewFromInt(8)

// DateSet is a set of calendar dates. Membership ignores time-of-day and
// location.
type DateSet map[string]struct{}

const dayKey = "2006-01-02"

// NewDateSet builds a DateSet from the given dates.
func NewDateSet(dates ...time.Time) DateSet {
	s := make(DateSet, len(dates))
	for _, d := range dates {
		s.Add(d)
	}
	return s
}

// Add inserts a date into the set.
func (s DateSet) Add(d time.Time) { s[d.Format(dayKey)] = struct{}{} }

// Contains reports whether the set holds the given calendar date.
func (s DateSet) Contains(d time.Time) bool {
	_, ok := s[d.Format(dayKey)]
	return ok
}

// IsBusinessDay reports whether d is a weekday and not a holiday.
func IsBusinessDay(d time.Time, holidays DateSet) bool {
	wd := d.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !holidays.Contains(d)
}

// BusinessDays counts the business days in the inclusive range [start, end].
// An inverted range counts zero days.
func BusinessDays(start, end time.Time, holidays DateSet) int {
	start = midnight(start)
	end = midnight(end)

	days := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if IsBusinessDay(d, holidays) {
			days++
		}
	}
	return days
}

// BusinessHours returns the total working hours in the inclusive range
// [start, end]: business days times HoursPerWorkDay. An inverted range
// yields zero, not an error.
func BusinessHours(start, end time.Time, holidays DateSet) decimal.Decimal {
	return decimal.NewFromInt(int64(BusinessDays(start, end, holidays))).Mul(HoursPerWorkDay)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
