package document

import (
	"fmt"
	"time"
)

const (
	gregorianMark = "م"
	hijriMark     = "هـ"
)

// HijriDate is a date of the tabular (arithmetic) Islamic calendar.
type HijriDate struct {
	Year  int
	Month int
	Day   int
}

// ToHijri converts the calendar date of t to the tabular Islamic calendar
// (30-year cycle, epoch 16 July 622 Julian). Observational calendars such as
// Umm al-Qura may differ by a day.
func ToHijri(t time.Time) HijriDate {
	l := julianDayNumber(t) - 1948440 + 10632
	n := (l - 1) / 10631
	l = l - 10631*n + 354
	j := ((10985-l)/5316)*((50*l)/17719) + (l/5670)*((43*l)/15238)
	l = l - ((30-j)/15)*((17719*j)/50) - (j/16)*((15238*j)/43) + 29
	month := (24 * l) / 709
	day := l - (709*month)/24
	year := 30*n + j - 30
	return HijriDate{Year: year, Month: month, Day: day}
}

func julianDayNumber(t time.Time) int {
	y, m, d := t.Date()
	a := (14 - int(m)) / 12
	yy := y + 4800 - a
	mm := int(m) + 12*a - 3
	return d + (153*mm+2)/5 + 365*yy + yy/4 - yy/100 + yy/400 - 32045
}

// FormatGregorian renders "YYYY/MM/DD م".
func FormatGregorian(t time.Time) string {
	return fmt.Sprintf("%04d/%02d/%02d %s", t.Year(), int(t.Month()), t.Day(), gregorianMark)
}

// FormatHijri renders "YYYY/MM/DD هـ".
func FormatHijri(t time.Time) string {
	h := ToHijri(t)
	return fmt.Sprintf("%04d/%02d/%02d %s", h.Year, h.Month, h.Day, hijriMark)
}
