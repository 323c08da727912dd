// Package calendar answers whether the Indonesia Stock Exchange trades on a
// given day.
package calendar

import (
	"fmt"
	"time"
)

// idxHolidays lists IDX exchange holidays.
// Source: https://www.idx.co.id/en/about-idx/exchange-holiday/
var idxHolidays = map[string]struct{}{
	// 2024
	"2024-01-01": {}, // New Year's Day
	"2024-02-08": {}, // Chinese New Year (Imlek)
	"2024-02-10": {}, // Chinese New Year (Imlek) - Additional
	"2024-03-11": {}, // Nyepi (Balinese Day of Silence)
	"2024-03-28": {}, // Joint Leave
	"2024-03-29": {}, // Good Friday
	"2024-04-10": {}, // Eid ul-Fitr
	"2024-04-11": {}, // Eid ul-Fitr
	"2024-04-12": {}, // Eid ul-Fitr - Joint Leave
	"2024-04-15": {}, // Eid ul-Fitr - Joint Leave
	"2024-05-01": {}, // Labor Day
	"2024-05-09": {}, // Ascension Day
	"2024-05-10": {}, // Joint Leave
	"2024-05-23": {}, // Waisak Day
	"2024-05-24": {}, // Joint Leave
	"2024-06-17": {}, // Eid ul-Adha
	"2024-06-18": {}, // Joint Leave
	"2024-07-07": {}, // Islamic New Year
	"2024-08-17": {}, // Independence Day
	"2024-09-16": {}, // Maulid Nabi
	"2024-12-25": {}, // Christmas Day
	"2024-12-26": {}, // Joint Leave

	// 2025
	"2025-01-01": {}, // New Year's Day
	"2025-01-27": {}, // Isra Mi'raj
	"2025-01-28": {}, // Joint Leave
	"2025-01-29": {}, // Chinese New Year (Imlek)
	"2025-01-30": {}, // Chinese New Year (Imlek) - Day 2
	"2025-03-28": {}, // Hari Raya Nyepi
	"2025-03-31": {}, // Eid ul-Fitr
	"2025-04-01": {}, // Eid ul-Fitr
	"2025-04-02": {}, // Joint Leave
	"2025-04-03": {}, // Joint Leave
	"2025-04-04": {}, // Joint Leave
	"2025-04-18": {}, // Good Friday
	"2025-05-01": {}, // Labor Day
	"2025-05-12": {}, // Waisak Day
	"2025-05-29": {}, // Ascension Day
	"2025-05-30": {}, // Joint Leave
	"2025-06-06": {}, // Eid ul-Adha
	"2025-06-27": {}, // Islamic New Year
	"2025-08-17": {}, // Independence Day
	"2025-08-18": {}, // Joint Leave
	"2025-09-05": {}, // Maulid Nabi
	"2025-12-25": {}, // Christmas Day
	"2025-12-26": {}, // Joint Leave
}

// IDXCalendar implements broker.Calendar for the Indonesia Stock Exchange.
type IDXCalendar struct{}

// New creates an IDXCalendar.
func New() *IDXCalendar {
	return &IDXCalendar{}
}

// IsTradingDay reports whether the exchange is open on the given day.
func (IDXCalendar) IsTradingDay(day time.Time) bool {
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := idxHolidays[day.Format("2006-01-02")]
	return !holiday
}

// NextTradingDay returns the first trading day on or after the given date.
// Searches at most 30 days ahead.
func (c IDXCalendar) NextTradingDay(from time.Time) (time.Time, error) {
	day := from
	for i := 0; i <= 30; i++ {
		if c.IsTradingDay(day) {
			return day, nil
		}
		day = day.AddDate(0, 0, 1)
	}
	return time.Time{}, fmt.Errorf("no trading day within 30 days of %s", from.Format("2006-01-02"))
}

// PreviousTradingDay returns the most recent trading day strictly before the
// given date. Searches at most 30 days back.
func (c IDXCalendar) PreviousTradingDay(from time.Time) (time.Time, error) {
	day := from.AddDate(0, 0, -1)
	for i := 0; i <= 30; i++ {
		if c.IsTradingDay(day) {
			return day, nil
		}
		day = day.AddDate(0, 0, -1)
	}
	return time.Time{}, fmt.Errorf("no trading day within 30 days before %s", from.Format("2006-01-02"))
}
