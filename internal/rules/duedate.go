// Package rules holds the pure business rules of the import pipeline: due-date
// computation, status-date prompt resolution, and duplicate flagging. Every
// rule is a pure function of its inputs.
package rules

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// OffsetLookup supplies the configured day offsets consulted by the lower
// due-date tiers.
type OffsetLookup interface {
	// TrackingOffset returns the fixed day offset configured for an exact
	// (statusCode, tracking1) pair.
	TrackingOffset(statusCode, tracking1 string) (int, bool)
	// StatusOffset returns the base day offset configured for a status.
	StatusOffset(statusCode string) (int, bool)
}

// DueDateResult carries the computed follow-up date and the elapsed-day count
// shown to auditors. Both are nil when no rule applies.
type DueDateResult struct {
	DueDate      *time.Time
	IntervalDays *int
}

const screeningDiscussedStatus = "Screening discussed"

// hgbA1cGoalStatuses are the two statuses whose follow-up interval rides in
// the second tracking value.
var hgbA1cGoalStatuses = map[string]bool{
	"HgbA1c at goal":     true,
	"HgbA1c not at goal": true,
}

var (
	inMonthsPattern = regexp.MustCompile(`(?i)^in\s+(\d+)\s+months?$`)
	monthsPattern   = regexp.MustCompile(`(?i)^(\d+)\s+months?$`)
)

// DueDate evaluates the tiered due-date rule. Tiers are tried in order and the
// first match wins:
//
//  1. "Screening discussed" with tracking1 "In N Month(s)" adds N calendar months.
//  2. An HgbA1c-goal status with tracking2 "N month(s)" adds N calendar months.
//  3. A configured offset for the exact (status, tracking1) pair adds fixed days.
//  4. The status's configured base offset adds fixed days.
//
// For the month-add tiers the interval is the actual elapsed whole-day count
// between the status date and the computed due date, not the nominal month
// count. For the offset tiers it equals the offset used.
func DueDate(statusDate *time.Time, statusCode, tracking1, tracking2 string, lookup OffsetLookup) DueDateResult {
	if statusDate == nil {
		return DueDateResult{}
	}

	if statusCode == screeningDiscussedStatus {
		if months, ok := matchMonths(inMonthsPattern, tracking1); ok {
			return monthAdd(*statusDate, months)
		}
	}

	if hgbA1cGoalStatuses[statusCode] {
		if months, ok := matchMonths(monthsPattern, tracking2); ok {
			return monthAdd(*statusDate, months)
		}
	}

	if lookup != nil {
		if offset, ok := lookup.TrackingOffset(statusCode, tracking1); ok {
			return dayAdd(*statusDate, offset)
		}
		if offset, ok := lookup.StatusOffset(statusCode); ok {
			return dayAdd(*statusDate, offset)
		}
	}

	return DueDateResult{}
}

func matchMonths(pattern *regexp.Regexp, value string) (int, bool) {
	groups := pattern.FindStringSubmatch(strings.TrimSpace(value))
	if groups == nil {
		return 0, false
	}
	months, err := strconv.Atoi(groups[1])
	if err != nil || months <= 0 {
		return 0, false
	}
	return months, true
}

func monthAdd(statusDate time.Time, months int) DueDateResult {
	due := statusDate.AddDate(0, months, 0)
	interval := int(due.Sub(statusDate).Hours() / 24)
	return DueDateResult{DueDate: &due, IntervalDays: &interval}
}

func dayAdd(statusDate time.Time, offset int) DueDateResult {
	due := statusDate.AddDate(0, 0, offset)
	interval := offset
	return DueDateResult{DueDate: &due, IntervalDays: &interval}
}
