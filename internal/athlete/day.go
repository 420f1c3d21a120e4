package athlete

import (
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// Day is a calendar date with no time of day, stored as YYYY-MM-DD.
// The layout sorts lexically, so plain string comparison orders days.
type Day string

func DayOf(t time.Time) Day {
	return Day(t.Format(dayLayout))
}

func ParseDay(s string) (Day, error) {
	if _, err := time.Parse(dayLayout, s); err != nil {
		return "", fmt.Errorf("parse day [%s]: %w", s, err)
	}
	return Day(s), nil
}

func (d Day) String() string {
	return string(d)
}

func (d Day) IsZero() bool {
	return d == ""
}

func (d Day) IsValid() bool {
	_, err := time.Parse(dayLayout, string(d))
	return err == nil
}

// AddDays returns the day n days after d. An invalid d is returned unchanged.
func (d Day) AddDays(n int) Day {
	t, err := time.Parse(dayLayout, string(d))
	if err != nil {
		return d
	}
	return DayOf(t.AddDate(0, 0, n))
}

func (d Day) Before(other Day) bool {
	return d < other
}

func (d Day) After(other Day) bool {
	return d > other
}
