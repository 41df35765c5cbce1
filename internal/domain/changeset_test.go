package domain

import (
	"strings"
	"testing"
	"time"
)

func testRecord(name, requestType, measure, status string) MeasureRecord {
	dob := time.Date(1985, time.February, 20, 12, 0, 0, 0, time.UTC)
	return MeasureRecord{
		PatientName:    name,
		DateOfBirth:    &dob,
		RequestType:    requestType,
		QualityMeasure: measure,
		MeasureStatus:  status,
	}
}

func TestParseMergeMode(t *testing.T) {
	cases := []struct {
		raw  string
		want MergeMode
	}{
		{"replace", MergeModeReplace},
		{" REPLACE ", MergeModeReplace},
		{"merge", MergeModeMerge},
		{"", MergeModeMerge},
	}
	for _, tc := range cases {
		mode, err := ParseMergeMode(tc.raw)
		if err != nil {
			t.Errorf("ParseMergeMode(%q) error: %v", tc.raw, err)
		}
		if mode != tc.want {
			t.Errorf("ParseMergeMode(%q) = %s, want %s", tc.raw, mode, tc.want)
		}
	}

	if _, err := ParseMergeMode("overwrite"); err == nil {
		t.Error("expected an error for an unknown mode")
	}
}

func TestChangeSetSortIsDeterministic(t *testing.T) {
	cs := ChangeSet{Mode: MergeModeReplace, Entries: []Change{
		{Kind: ChangeDelete, Key: "b"},
		{Kind: ChangeAdd, Key: "z"},
		{Kind: ChangeUpdate, Key: "a"},
		{Kind: ChangeAdd, Key: "a"},
	}}
	cs.Sort()

	var got []string
	for _, entry := range cs.Entries {
		got = append(got, string(entry.Kind)+":"+entry.Key)
	}
	want := []string{"add:a", "add:z", "update:a", "delete:b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestChangeSetCounts(t *testing.T) {
	cs := ChangeSet{Entries: []Change{
		{Kind: ChangeAdd}, {Kind: ChangeAdd},
		{Kind: ChangeUpdate},
		{Kind: ChangeDelete},
		{Kind: ChangeReassign},
	}}
	counts := cs.Counts()
	if counts.Adds != 2 || counts.Updates != 1 || counts.Deletes != 1 || counts.Reassigns != 1 || counts.Total != 5 {
		t.Errorf("unexpected counts: %+v", counts)
	}
}

func TestCanonicalTextIsStable(t *testing.T) {
	build := func() ChangeSet {
		before := testRecord("Jane Doe", "Screening", "Breast Cancer Screening", "Screening discussed")
		after := testRecord("Jane Doe", "Screening", "Breast Cancer Screening", "Mammogram completed")
		cs := ChangeSet{Mode: MergeModeMerge, Entries: []Change{
			{Kind: ChangeUpdate, Key: after.MatchKey(), Before: &before, After: &after},
		}}
		cs.Sort()
		return cs
	}

	first := build().CanonicalText()
	second := build().CanonicalText()
	if first != second {
		t.Fatal("identical changesets must render byte-identical canonical text")
	}
	if !strings.Contains(first, "Mode: merge") {
		t.Errorf("canonical text missing mode header:\n%s", first)
	}
	if !strings.Contains(first, "- status: Screening discussed") || !strings.Contains(first, "+ status: Mammogram completed") {
		t.Errorf("canonical text missing before/after lines:\n%s", first)
	}
}

func TestRenderDiff(t *testing.T) {
	before := testRecord("Jane Doe", "Screening", "Breast Cancer Screening", "Screening discussed")
	after := before
	after.MeasureStatus = "Mammogram completed"

	diff := Change{Kind: ChangeUpdate, Before: &before, After: &after}.RenderDiff()

	if !strings.HasPrefix(diff, "--- persisted\n+++ uploaded\n") {
		t.Errorf("diff missing labels:\n%s", diff)
	}
	if !strings.Contains(diff, "-status: Screening discussed") {
		t.Errorf("diff missing removed line:\n%s", diff)
	}
	if !strings.Contains(diff, "+status: Mammogram completed") {
		t.Errorf("diff missing added line:\n%s", diff)
	}
	if !strings.Contains(diff, " patient: Jane Doe") {
		t.Errorf("diff missing context line:\n%s", diff)
	}
}

func TestPatientIdentityNormalization(t *testing.T) {
	dob := time.Date(1985, time.February, 20, 12, 0, 0, 0, time.UTC)
	a := NewPatientIdentity("  Jane   DOE ", &dob)
	b := NewPatientIdentity("jane doe", &dob)
	if a != b {
		t.Errorf("identities differ: %v vs %v", a, b)
	}
	if a.String() != "jane doe|1985-02-20" {
		t.Errorf("identity key = %q", a.String())
	}

	c := NewPatientIdentity("Jane Doe", nil)
	if c.String() != "jane doe|" {
		t.Errorf("nil dob key = %q", c.String())
	}
}

func TestMatchKeyFallsBackToIdentity(t *testing.T) {
	rec := testRecord("Jane Doe", "", "", "")
	if rec.MatchKey() != rec.Identity().String() {
		t.Error("patient-level record should match on identity alone")
	}
	if !rec.PatientLevel() {
		t.Error("record without a measure is patient-level")
	}

	measure := testRecord("Jane Doe", "Screening", "Breast Cancer Screening", "Completed")
	if measure.MatchKey() == measure.Identity().String() {
		t.Error("measure record key must include the measure")
	}
	if measure.PatientLevel() {
		t.Error("measure record is not patient-level")
	}
}
