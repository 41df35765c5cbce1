package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// MergeMode selects how an upload is reconciled against persisted state.
type MergeMode string

const (
	// MergeModeReplace treats the upload as the complete new state for its
	// scope; persisted records missing from the upload become deletions.
	MergeModeReplace MergeMode = "replace"
	// MergeModeMerge treats the upload as incremental upserts; persisted
	// records it does not mention are preserved.
	MergeModeMerge MergeMode = "merge"
)

// ParseMergeMode validates a caller-supplied mode string.
func ParseMergeMode(raw string) (MergeMode, error) {
	switch MergeMode(strings.ToLower(strings.TrimSpace(raw))) {
	case MergeModeReplace:
		return MergeModeReplace, nil
	case MergeModeMerge, "":
		return MergeModeMerge, nil
	default:
		return "", fmt.Errorf("unknown merge mode %q", raw)
	}
}

// ChangeKind classifies one changeset entry.
type ChangeKind string

const (
	ChangeAdd      ChangeKind = "add"
	ChangeUpdate   ChangeKind = "update"
	ChangeDelete   ChangeKind = "delete"
	ChangeReassign ChangeKind = "reassign"
)

// Change is one entry in a changeset. Before is set for update/delete/reassign,
// After for add/update/reassign.
type Change struct {
	Kind   ChangeKind     `json:"kind"`
	Key    string         `json:"key"`
	Before *MeasureRecord `json:"before,omitempty"`
	After  *MeasureRecord `json:"after,omitempty"`
}

// ChangeSet is the reconciled outcome of one import pass. Entries are kept in
// a deterministic order (kind, then match key) so identical inputs always
// produce byte-identical output.
type ChangeSet struct {
	Mode    MergeMode `json:"mode"`
	Entries []Change  `json:"entries"`
}

// ChangeCounts summarizes a changeset for the preview response.
type ChangeCounts struct {
	Adds      int `json:"adds"`
	Updates   int `json:"updates"`
	Deletes   int `json:"deletes"`
	Reassigns int `json:"reassigns"`
	Total     int `json:"total"`
}

// Counts tallies entries by kind.
func (cs ChangeSet) Counts() ChangeCounts {
	counts := ChangeCounts{Total: len(cs.Entries)}
	for _, entry := range cs.Entries {
		switch entry.Kind {
		case ChangeAdd:
			counts.Adds++
		case ChangeUpdate:
			counts.Updates++
		case ChangeDelete:
			counts.Deletes++
		case ChangeReassign:
			counts.Reassigns++
		}
	}
	return counts
}

var changeKindOrder = map[ChangeKind]int{
	ChangeAdd:      0,
	ChangeUpdate:   1,
	ChangeDelete:   2,
	ChangeReassign: 3,
}

// Sort orders entries deterministically by kind then key.
func (cs *ChangeSet) Sort() {
	sort.SliceStable(cs.Entries, func(i, j int) bool {
		a, b := cs.Entries[i], cs.Entries[j]
		if changeKindOrder[a.Kind] != changeKindOrder[b.Kind] {
			return changeKindOrder[a.Kind] < changeKindOrder[b.Kind]
		}
		return a.Key < b.Key
	})
}

// CanonicalText flattens the changeset into a deterministic line form. Two
// changesets computed from identical inputs render identical text, which is
// what the preview cache and re-preview consistency checks rely on.
func (cs ChangeSet) CanonicalText() string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Mode: %s\n", cs.Mode))
	for _, entry := range cs.Entries {
		builder.WriteString(fmt.Sprintf("%s %s\n", entry.Kind, entry.Key))
		for _, line := range recordLines(entry.Before) {
			builder.WriteString("  - " + line + "\n")
		}
		for _, line := range recordLines(entry.After) {
			builder.WriteString("  + " + line + "\n")
		}
	}
	return builder.String()
}

func recordLines(record *MeasureRecord) []string {
	if record == nil {
		return nil
	}
	lines := []string{
		"patient: " + record.PatientName,
		"dob: " + formatDatePtr(record.DateOfBirth),
		"requestType: " + record.RequestType,
		"qualityMeasure: " + record.QualityMeasure,
		"status: " + record.MeasureStatus,
		"statusDate: " + formatDatePtr(record.StatusDate),
		"dueDate: " + formatDatePtr(record.DueDate),
	}
	if record.Tracking1 != "" {
		lines = append(lines, "tracking1: "+record.Tracking1)
	}
	if record.Tracking2 != "" {
		lines = append(lines, "tracking2: "+record.Tracking2)
	}
	if record.Tracking3 != "" {
		lines = append(lines, "tracking3: "+record.Tracking3)
	}
	if record.Notes != "" {
		lines = append(lines, "notes: "+record.Notes)
	}
	if record.IsDuplicate {
		lines = append(lines, "duplicate: true")
	}
	return lines
}

func formatDatePtr(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.UTC().Format("2006-01-02")
}

// RenderDiff produces a unified diff of one entry's before and after record,
// for operator review of updates.
func (c Change) RenderDiff() string {
	return buildUnifiedDiff("persisted", "uploaded", recordLines(c.Before), recordLines(c.After))
}

type diffOp struct {
	prefix string
	line   string
}

func buildUnifiedDiff(baseLabel, targetLabel string, baseLines, targetLines []string) string {
	ops := diffLines(baseLines, targetLines)

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("--- %s\n", baseLabel))
	builder.WriteString(fmt.Sprintf("+++ %s\n", targetLabel))
	for _, operation := range ops {
		builder.WriteString(operation.prefix)
		builder.WriteString(operation.line)
		builder.WriteString("\n")
	}

	return builder.String()
}

func diffLines(base, target []string) []diffOp {
	m := len(base)
	n := len(target)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}

	for i := m - 1; i >= 0; i-- {
		for j := n - 1; j >= 0; j-- {
			if base[i] == target[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}

	ops := make([]diffOp, 0, m+n)
	i, j := 0, 0
	for i < m && j < n {
		if base[i] == target[j] {
			ops = append(ops, diffOp{prefix: " ", line: base[i]})
			i++
			j++
			continue
		}

		if dp[i+1][j] >= dp[i][j+1] {
			ops = append(ops, diffOp{prefix: "-", line: base[i]})
			i++
		} else {
			ops = append(ops, diffOp{prefix: "+", line: target[j]})
			j++
		}
	}

	for i < m {
		ops = append(ops, diffOp{prefix: "-", line: base[i]})
		i++
	}

	for j < n {
		ops = append(ops, diffOp{prefix: "+", line: target[j]})
		j++
	}

	return ops
}
