package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits kept on currency amounts.
const MoneyPlaces int32 = 2

var hundred = decimal.NewFromInt(100)

// RoundMoney is the single rounding policy of the pipeline: half away from
// zero at MoneyPlaces.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// FlatInterest calculates the total interest charged once on the principal
// Formula: Principal * Rate / 100
func FlatInterest(principal decimal.Decimal, annualRatePercent decimal.Decimal) decimal.Decimal {
	return RoundMoney(principal.Mul(annualRatePercent).Div(hundred))
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days of the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddDays advances a date by n calendar days.
func AddDays(start time.Time, n int) time.Time {
	return DateOnly(start).AddDate(0, 0, n)
}

// AddWeeks advances a date by n weeks of 7 days.
// Week 1 is due 7 days after start, Week 2 is due 14 days after, etc.
func AddWeeks(start time.Time, n int) time.Time {
	return DateOnly(start).AddDate(0, 0, 7*n)
}

// AddMonthsPinned advances start by n months and pins the day of month to day.
// Months shorter than day use their last day.
func AddMonthsPinned(start time.Time, n int, day int) time.Time {
	first := time.Date(start.Year(), start.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := DaysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// IsDateOverdue checks if a due date lies strictly before today
func IsDateOverdue(dueDate time.Time, today time.Time) bool {
	return DateOnly(dueDate).Before(DateOnly(today))
}
