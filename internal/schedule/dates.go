package schedule

import (
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// Weekday returns the weekday index (0 = Sunday) of an ISO date.
func Weekday(date string) (int, error) {
	t, err := time.Parse(dayLayout, date)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", date, err)
	}
	return int(t.Weekday()), nil
}

// AddDays shifts an ISO date by the given number of days.
func AddDays(date string, days int) (string, error) {
	t, err := time.Parse(dayLayout, date)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", date, err)
	}
	return t.AddDate(0, 0, days).Format(dayLayout), nil
}

// StartTime combines an ISO date and a slot label into a local wall-clock
// time. Slot labels are timezone naive, so the server's local zone is used
// consistently for both scheduling and the cancellation window.
func StartTime(date, slot string) (time.Time, error) {
	t, err := time.ParseInLocation(dayLayout+" 15:04", date+" "+slot, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse slot time %q %q: %w", date, slot, err)
	}
	return t, nil
}

// minutesOfDay converts an "HH:MM" label to minutes since midnight.
func minutesOfDay(label string) (int, bool) {
	var h, m int
	if _, err := fmt.Sscanf(label, "%d:%d", &h, &m); err != nil {
		return 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
