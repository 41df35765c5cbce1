package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/careops/measuresync/internal/dates"
	"github.com/careops/measuresync/internal/preview"
)

var exportHeader = []string{
	"Change", "Patient", "Date of Birth", "Request Type", "Quality Measure",
	"Status", "Status Date", "Due Date", "Interval Days", "Duplicate", "Notes",
}

func exportRows(bundle *preview.Bundle) [][]string {
	rows := make([][]string, 0, len(bundle.ChangeSet.Entries))
	for _, entry := range bundle.ChangeSet.Entries {
		record := entry.After
		if record == nil {
			record = entry.Before
		}
		if record == nil {
			continue
		}
		interval := ""
		if record.IntervalDays != nil {
			interval = strconv.Itoa(*record.IntervalDays)
		}
		rows = append(rows, []string{
			string(entry.Kind),
			record.PatientName,
			dates.ToDisplayString(record.DateOfBirth),
			record.RequestType,
			record.QualityMeasure,
			record.MeasureStatus,
			dates.ToDisplayString(record.StatusDate),
			dates.ToDisplayString(record.DueDate),
			interval,
			strconv.FormatBool(record.IsDuplicate),
			record.Notes,
		})
	}
	return rows
}

// WriteChangeSetCSV renders a bundle's changeset as CSV for operator download.
func WriteChangeSetCSV(w io.Writer, bundle *preview.Bundle) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}
	for _, row := range exportRows(bundle) {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write export row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteChangeSetXLSX renders a bundle's changeset as a workbook.
func WriteChangeSetXLSX(w io.Writer, bundle *preview.Bundle) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := "Changeset"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name export sheet: %w", err)
	}

	writeRow := func(rowIdx int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowIdx)
		if err != nil {
			return err
		}
		row := make([]any, len(values))
		for i, value := range values {
			row[i] = value
		}
		return f.SetSheetRow(sheet, cell, &row)
	}

	if err := writeRow(1, exportHeader); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}
	for i, row := range exportRows(bundle) {
		if err := writeRow(i+2, row); err != nil {
			return fmt.Errorf("failed to write export row: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
