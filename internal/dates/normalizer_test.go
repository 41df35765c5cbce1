package dates

import (
	"testing"
	"time"
)

func TestParseCalendarFormats(t *testing.T) {
	cases := []struct {
		input  string
		want   string
		format string
	}{
		{"01/15/1990", "1990-01-15", "mm/dd/yyyy"},
		{"1/5/1990", "1990-01-05", "mm/dd/yyyy"},
		{"1990-01-15", "1990-01-15", "yyyy-mm-dd"},
		{"1.15.1990", "1990-01-15", "m.d.yyyy"},
		{"01-15-1990", "1990-01-15", "mm-dd-yyyy"},
		{"1990/01/15", "1990-01-15", "yyyy/mm/dd"},
		{"  03/10/2025  ", "2025-03-10", "mm/dd/yyyy"},
	}

	for _, tc := range cases {
		parsed := Parse(tc.input)
		if parsed.Date == nil {
			t.Fatalf("Parse(%q) returned nil date", tc.input)
		}
		if got := ToCanonicalString(parsed.Date); got != tc.want {
			t.Errorf("Parse(%q) = %s, want %s", tc.input, got, tc.want)
		}
		if parsed.Format != tc.format {
			t.Errorf("Parse(%q) format = %s, want %s", tc.input, parsed.Format, tc.format)
		}
	}
}

func TestParseTwoDigitYearPivot(t *testing.T) {
	if got := ToCanonicalString(Parse("01/15/49").Date); got != "2049-01-15" {
		t.Errorf("year 49 parsed as %s, want 2049-01-15", got)
	}
	if got := ToCanonicalString(Parse("01/15/50").Date); got != "1950-01-15" {
		t.Errorf("year 50 parsed as %s, want 1950-01-15", got)
	}
}

func TestParseSpreadsheetSerial(t *testing.T) {
	parsed := Parse("45678")
	if parsed.Format != FormatSerial {
		t.Fatalf("expected serial format, got %s", parsed.Format)
	}
	if got := ToCanonicalString(parsed.Date); got != "2025-01-21" {
		t.Errorf("serial 45678 = %s, want 2025-01-21", got)
	}

	// Serial bounds are exclusive; out-of-range digit runs fall through.
	if parsed := Parse("1"); parsed.Format == FormatSerial {
		t.Errorf("serial 1 should not parse as a serial date")
	}
	if parsed := Parse("100000"); parsed.Format == FormatSerial {
		t.Errorf("serial 100000 should not parse as a serial date")
	}
}

func TestParseAnchorsAtUTCNoon(t *testing.T) {
	parsed := Parse("06/15/2024")
	if parsed.Date == nil {
		t.Fatal("expected a date")
	}
	if parsed.Date.Hour() != 12 || parsed.Date.Location() != time.UTC {
		t.Errorf("expected UTC noon anchor, got %v", *parsed.Date)
	}
}

func TestParseRejectsImpossibleDates(t *testing.T) {
	for _, input := range []string{"02/30/2020", "13/01/2020", "00/10/2020", "04/31/2021"} {
		parsed := Parse(input)
		if parsed.Date != nil || parsed.Format != FormatInvalid {
			t.Errorf("Parse(%q) should be invalid, got format %s", input, parsed.Format)
		}
	}
}

func TestParseFallbackLayouts(t *testing.T) {
	parsed := Parse("January 2, 2006")
	if parsed.Format != FormatFallback {
		t.Fatalf("expected fallback format, got %s", parsed.Format)
	}
	if got := ToCanonicalString(parsed.Date); got != "2006-01-02" {
		t.Errorf("got %s, want 2006-01-02", got)
	}
}

func TestParseEmptyAndGarbage(t *testing.T) {
	for _, input := range []string{"", "   ", "not a date", "N/A"} {
		parsed := Parse(input)
		if parsed.Date != nil || parsed.Format != FormatInvalid {
			t.Errorf("Parse(%q) should be invalid", input)
		}
		if parsed.Original != input {
			t.Errorf("Parse(%q) should preserve the original value", input)
		}
	}
}

func TestDisplayAndCanonicalRendering(t *testing.T) {
	date := time.Date(1990, time.January, 15, 12, 0, 0, 0, time.UTC)
	if got := ToCanonicalString(&date); got != "1990-01-15" {
		t.Errorf("canonical = %s", got)
	}
	if got := ToDisplayString(&date); got != "01/15/1990" {
		t.Errorf("display = %s", got)
	}
	if ToCanonicalString(nil) != "" || ToDisplayString(nil) != "" {
		t.Error("nil date should render empty")
	}
}
