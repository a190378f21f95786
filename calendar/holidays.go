package calendar

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoNthWeekday is returned when a month has no nth occurrence of the
// requested weekday (e.g. the 5th Monday of a 4-Monday month).
var ErrNoNthWeekday = errors.New("no such weekday occurrence in month")

// juneteenthSince is the first year Juneteenth was observed as a federal
// holiday.
const juneteenthSince = 2021

// Holiday is a named calendar date. Reference data only; never mutated by
// the request flow.
type Holiday struct {
	Date time.Time
	Name string
}

// NthWeekdayOfMonth returns the nth occurrence of weekday in the given month.
// It locates the month's first occurrence of the weekday and advances nth-1
// weeks; if that lands outside the month the occurrence does not exist and
// ErrNoNthWeekday is returned rather than a date from the wrong month.
func NthWeekdayOfMonth(year int, month time.Month, weekday time.Weekday, nth int) (time.Time, error) {
	if nth < 1 {
		return time.Time{}, fmt.Errorf("nth must be positive, got %d", nth)
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	target := first.AddDate(0, 0, offset+(nth-1)*7)

	if target.Month() != month {
		return time.Time{}, ErrNoNthWeekday
	}
	return target, nil
}

// LastWeekdayOfMonth returns the final occurrence of weekday in the month.
func LastWeekdayOfMonth(year int, month time.Month, weekday time.Weekday) time.Time {
	last := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	offset := (int(last.Weekday()) - int(weekday) + 7) % 7
	return last.AddDate(0, 0, -offset)
}

// FederalHolidays returns the US federal holiday calendar for a year.
// The list is fixed: floating holidays use nth/last-weekday rules and
// Juneteenth appears only for years >= 2021.
func FederalHolidays(year int) []Holiday {
	date := func(month time.Month, day int) time.Time {
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	}
	nth := func(month time.Month, weekday time.Weekday, n int) time.Time {
		d, err := NthWeekdayOfMonth(year, month, weekday, n)
		if err != nil {
			// 1st-4th occurrences always exist
			panic(err)
		}
		return d
	}

	holidays := []Holiday{
		{date(time.January, 1), "New Year's Day"},
		{nth(time.January, time.Monday, 3), "Martin Luther King, Jr. Day"},
		{nth(time.February, time.Monday, 3), "Washington's Birthday"},
		{LastWeekdayOfMonth(year, time.May, time.Monday), "Memorial Day"},
	}
	if year >= juneteenthSince {
		holidays = append(holidays, Holiday{date(time.June, 19), "Juneteenth National Independence Day"})
	}
	holidays = append(holidays,
		Holiday{date(time.July, 4), "Independence Day"},
		Holiday{nth(time.September, time.Monday, 1), "Labor Day"},
		Holiday{nth(time.October, time.Monday, 2), "Columbus Day"},
		Holiday{date(time.November, 11), "Veterans Day"},
		Holiday{nth(time.November, time.Thursday, 4), "Thanksgiving Day"},
		Holiday{date(time.December, 25), "Christmas Day"},
	)
	return holidays
}

// FederalHolidayDates returns just the dates of the federal calendar across
// a span of years, ready for NewDateSet.
func FederalHolidayDates(fromYear, toYear int) []time.Time {
	var dates []time.Time
	for year := fromYear; year <= toYear; year++ {
		for _, h := range FederalHolidays(year) {
			dates = append(dates, h.Date)
		}
	}
	return dates
}
