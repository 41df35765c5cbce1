// Package dates parses the heterogeneous date representations that appear in
// clinic exports, including spreadsheet serial day-counts, into a single UTC
// date type. Every function here is total: bad input yields a nil date and a
// format tag of "invalid", never an error.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Format tags reported by Parse.
const (
	FormatSerial   = "serial"
	FormatFallback = "fallback"
	FormatInvalid  = "invalid"
)

// Parsed is the outcome of one parse attempt.
type Parsed struct {
	Date     *time.Time
	Original string
	Format   string
}

// serialEpoch is the spreadsheet day-zero. Using 1899-12-30 absorbs the
// historical off-by-two (1-indexing plus the phantom 1900 leap day) so serial
// values convert with plain day addition.
var serialEpoch = time.Date(1899, time.December, 30, 12, 0, 0, 0, time.UTC)

const (
	serialMin = 1
	serialMax = 100000
)

type calendarPattern struct {
	tag     string
	pattern *regexp.Regexp
	// order maps the regexp groups onto (year, month, day).
	build func(groups []string) (year, month, day int, ok bool)
}

func mdy(groups []string) (int, int, int, bool) {
	month, day, year := atoi(groups[1]), atoi(groups[2]), atoi(groups[3])
	return year, month, day, true
}

func ymd(groups []string) (int, int, int, bool) {
	year, month, day := atoi(groups[1]), atoi(groups[2]), atoi(groups[3])
	return year, month, day, true
}

func mdyShort(groups []string) (int, int, int, bool) {
	month, day, yy := atoi(groups[1]), atoi(groups[2]), atoi(groups[3])
	if yy < 50 {
		return 2000 + yy, month, day, true
	}
	return 1900 + yy, month, day, true
}

var calendarPatterns = []calendarPattern{
	{tag: "mm/dd/yyyy", pattern: regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`), build: mdy},
	{tag: "mm/dd/yy", pattern: regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2})$`), build: mdyShort},
	{tag: "yyyy-mm-dd", pattern: regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`), build: ymd},
	{tag: "m.d.yyyy", pattern: regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`), build: mdy},
	{tag: "mm-dd-yyyy", pattern: regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`), build: mdy},
	{tag: "yyyy/mm/dd", pattern: regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})$`), build: ymd},
}

// fallbackLayouts handle free-form values none of the explicit patterns match.
var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"20060102",
}

// Parse interprets value as a date. Recognition priority: spreadsheet serial
// day-count, explicit calendar patterns, then a free-form fallback.
func Parse(value string) Parsed {
	original := value
	value = strings.TrimSpace(value)
	if value == "" {
		return Parsed{Original: original, Format: FormatInvalid}
	}

	if isPureDigits(value) {
		if serial, err := strconv.Atoi(value); err == nil && serial > serialMin && serial < serialMax {
			date := serialEpoch.AddDate(0, 0, serial)
			return Parsed{Date: &date, Original: original, Format: FormatSerial}
		}
	}

	for _, candidate := range calendarPatterns {
		groups := candidate.pattern.FindStringSubmatch(value)
		if groups == nil {
			continue
		}
		year, month, day, ok := candidate.build(groups)
		if !ok {
			continue
		}
		// Anchor at UTC noon so local-time display can never shift the day.
		date := time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC)
		if date.Year() != year || date.Month() != time.Month(month) || date.Day() != day {
			// Rollover means the calendar date never existed (e.g. 02/30).
			return Parsed{Original: original, Format: FormatInvalid}
		}
		return Parsed{Date: &date, Original: original, Format: candidate.tag}
	}

	for _, layout := range fallbackLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			date := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 12, 0, 0, 0, time.UTC)
			return Parsed{Date: &date, Original: original, Format: FormatFallback}
		}
	}

	return Parsed{Original: original, Format: FormatInvalid}
}

// ToCanonicalString renders a date as YYYY-MM-DD, or "" for nil.
func ToCanonicalString(date *time.Time) string {
	if date == nil {
		return ""
	}
	return date.UTC().Format("2006-01-02")
}

// ToDisplayString renders a date as MM/DD/YYYY, or "" for nil.
func ToDisplayString(date *time.Time) string {
	if date == nil {
		return ""
	}
	return date.UTC().Format("01/02/2006")
}

func isPureDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(value) > 0
}

func atoi(value string) int {
	n, _ := strconv.Atoi(value)
	return n
}
