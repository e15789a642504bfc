// Package recurrence computes the next firing instant of a schedule rule.
package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"LocaleAudit/internal/domain"
)

const (
	defaultDayOfWeek  = 1 // Monday
	defaultDayOfMonth = 1
)

// Rule is the recurrence portion of a schedule. DayOfWeek is meaningful
// only for weekly rules (0=Sunday..6=Saturday), DayOfMonth only for
// monthly rules (1..31). TimeOfDay is "HH:MM" on a 24-hour clock.
type Rule struct {
	Frequency  domain.Frequency
	DayOfWeek  *int
	DayOfMonth *int
	TimeOfDay  string
}

// RuleOf extracts the recurrence rule from a schedule row.
func RuleOf(schedule domain.Schedule) Rule {
	return Rule{
		Frequency:  schedule.Frequency,
		DayOfWeek:  schedule.DayOfWeek,
		DayOfMonth: schedule.DayOfMonth,
		TimeOfDay:  schedule.TimeOfDay,
	}
}

// NextRun returns the first instant strictly after from at which the rule
// fires, in from's location, truncated to whole seconds. A candidate that
// lands exactly on from counts as already passed. Monthly rules do not
// clamp the day-of-month: day 31 in a 30-day month rolls into the next
// month via time.Date normalization.
func NextRun(rule Rule, from time.Time) (time.Time, error) {
	hour, minute, err := parseTimeOfDay(rule.TimeOfDay)
	if err != nil {
		return time.Time{}, err
	}

	loc := from.Location()
	year, month, day := from.Date()

	switch rule.Frequency {
	case domain.FrequencyDaily:
		candidate := time.Date(year, month, day, hour, minute, 0, 0, loc)
		if !candidate.After(from) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		return candidate, nil

	case domain.FrequencyWeekly:
		target := defaultDayOfWeek
		if rule.DayOfWeek != nil {
			target = *rule.DayOfWeek
		}
		if target < 0 || target > 6 {
			return time.Time{}, fmt.Errorf("day of week %d out of range 0..6", target)
		}

		delta := (target - int(from.Weekday()) + 7) % 7
		candidate := time.Date(year, month, day, hour, minute, 0, 0, loc)
		if delta == 0 && !candidate.After(from) {
			// Same weekday but the slot has passed: never fire "today".
			delta = 7
		}
		return candidate.AddDate(0, 0, delta), nil

	case domain.FrequencyMonthly:
		target := defaultDayOfMonth
		if rule.DayOfMonth != nil {
			target = *rule.DayOfMonth
		}
		if target < 1 || target > 31 {
			return time.Time{}, fmt.Errorf("day of month %d out of range 1..31", target)
		}

		candidate := time.Date(year, month, target, hour, minute, 0, 0, loc)
		if !candidate.After(from) {
			candidate = time.Date(year, month+1, target, hour, minute, 0, 0, loc)
		}
		return candidate, nil

	default:
		return time.Time{}, fmt.Errorf("unknown frequency %q", rule.Frequency)
	}
}

func parseTimeOfDay(value string) (hour, minute int, err error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("time of day %q is not HH:MM", value)
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("time of day %q has invalid hour", value)
	}

	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time of day %q has invalid minute", value)
	}

	return hour, minute, nil
}
