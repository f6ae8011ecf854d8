// Package timeslot contains the time arithmetic shared by schedules, appointments and the sweeper:
// "HH:mm" clock values, 30 minutes slot generation, weekday matching and calendar dates.
package timeslot

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// SlotMinutes is the length of a bookable slot.
	SlotMinutes = 30

	// DateLayout is the layout of calendar dates exchanged with clients.
	DateLayout = "2006-01-02"

	clockLayout = "15:04"
)

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// Valid checks if the given value is a "HH:mm" clock value.
func Valid(clock string) bool {
	return clockPattern.MatchString(clock)
}

// Parse converts a "HH:mm" value into minutes since midnight.
func Parse(clock string) (int, error) {
	matches := clockPattern.FindStringSubmatch(clock)
	if matches == nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:mm", clock)
	}
	hours, _ := strconv.Atoi(matches[1])
	minutes, _ := strconv.Atoi(matches[2])
	return hours*60 + minutes, nil
}

// Format converts minutes since midnight into a "HH:mm" value.
func Format(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Generate returns the slot start times from start, every SlotMinutes, while strictly before end.
// Bounds are not rounded, so a trailing partial slot is never emitted.
func Generate(start, end string) ([]string, error) {
	startMinutes, err := Parse(start)
	if err != nil {
		return nil, err
	}
	endMinutes, err := Parse(end)
	if err != nil {
		return nil, err
	}
	slots := make([]string, 0)
	for current := startMinutes; current < endMinutes; current += SlotMinutes {
		slots = append(slots, Format(current))
	}
	return slots, nil
}

// Sort sorts the given clock values by time of day. Invalid values go last.
func Sort(slots []string) {
	sort.SliceStable(slots, func(i, j int) bool {
		a, errA := Parse(slots[i])
		b, errB := Parse(slots[j])
		if errA != nil || errB != nil {
			return errB != nil && errA == nil
		}
		return a < b
	})
}

// Subtract returns the slots not present in occupied, without duplicates, keeping their order.
func Subtract(slots []string, occupied map[string]struct{}) []string {
	free := make([]string, 0, len(slots))
	seen := make(map[string]struct{}, len(slots))
	for _, slot := range slots {
		if _, isOccupied := occupied[slot]; isOccupied {
			continue
		}
		if _, isSeen := seen[slot]; isSeen {
			continue
		}
		seen[slot] = struct{}{}
		free = append(free, slot)
	}
	return free
}

// MatchesWeekday checks if a schedule day name refers to the given weekday. The comparison is
// case-insensitive and accepts the English full name ("monday") or its first three letters ("mon").
func MatchesWeekday(day string, weekday time.Weekday) bool {
	normalized := strings.ToLower(strings.TrimSpace(day))
	fullName := strings.ToLower(weekday.String())
	return normalized == fullName || normalized == fullName[:3]
}

// ParseWeekday resolves a schedule day name into a weekday.
func ParseWeekday(day string) (time.Weekday, bool) {
	for weekday := time.Sunday; weekday <= time.Saturday; weekday++ {
		if MatchesWeekday(day, weekday) {
			return weekday, true
		}
	}
	return time.Sunday, false
}

// DateOf returns the calendar date of t, read in t's own location, as UTC midnight. It is the
// storage form of appointment dates.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a "YYYY-MM-DD" calendar date.
func ParseDate(value string) (time.Time, error) {
	date, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(date), nil
}

// DayBounds returns the UTC window [00:00:00.000, 23:59:59.999] of the calendar date of t.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := DateOf(t)
	end := start.Add(24*time.Hour - time.Millisecond)
	return start, end
}

// Clock returns the "HH:mm" value of t in its own location.
func Clock(t time.Time) string {
	return t.Format(clockLayout)
}
