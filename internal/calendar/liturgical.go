package calendar

import (
	"fmt"
	"time"
)

// DayName returns the day of week name (Sunday, Monday, etc.)
func DayName(d LocalDate) string {
	days := []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
	return days[d.Weekday()]
}

// NextWeekday returns the first date on or after d that falls on weekday.
func NextWeekday(d LocalDate, weekday time.Weekday) LocalDate {
	current := d
	for current.Weekday() != weekday {
		current = current.AddDays(1)
	}
	return current
}

// FormatSpan formats a start date and optional end date for display,
// e.g. "Sunday, March 24, 2024 – Saturday, March 30, 2024".
func FormatSpan(start LocalDate, end *LocalDate) string {
	if end == nil || end.Equal(start) {
		return start.Format()
	}
	return fmt.Sprintf("%s – %s", start.Format(), end.Format())
}

// HebrewDay returns a day-count label such as "15 Nisan".
func HebrewDay(day int, month string) string {
	return fmt.Sprintf("%d %s", day, month)
}
