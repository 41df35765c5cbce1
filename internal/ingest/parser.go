// Package ingest turns raw uploaded bytes into a normalized table of headers
// and rows, independent of the source system that produced the export.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/careops/measuresync/internal/domain"
)

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// Sheet is the normalized form of one uploaded export. Rows map header name to
// trimmed cell value; blank cells are absent, never empty strings.
type Sheet struct {
	Headers []string
	Rows    []map[string]string
	// DataStartLine is the 1-indexed source line where data rows begin, used
	// for error and warning messages.
	DataStartLine int
	Format        string
	Warnings      []string
}

// BannerPredicate reports whether a raw leading row is a report banner rather
// than the header row. It is pluggable because the detection is a heuristic
// over known export layouts, not a guarantee.
type BannerPredicate func(cells []string) bool

var (
	bannerDashRun = regexp.MustCompile(`[-—_]{4,}`)
)

// DefaultBannerPredicate matches the banner shapes observed in real clinic
// exports: a "Report Generated ..." stamp, an "All (...)" scope line, a
// divider of dashes, or a wide row that is nearly empty.
func DefaultBannerPredicate(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(cells[0]))
	if strings.Contains(first, "report generated") {
		return true
	}
	if strings.HasPrefix(first, "all (") {
		return true
	}
	if bannerDashRun.MatchString(first) {
		return true
	}
	if len(cells) > 10 {
		nonEmpty := 0
		for _, cell := range cells {
			if strings.TrimSpace(cell) != "" {
				nonEmpty++
			}
		}
		if nonEmpty <= 2 {
			return true
		}
	}
	return false
}

// Parser normalizes delimited text and spreadsheet uploads.
type Parser struct {
	isBanner BannerPredicate
}

// NewParser creates a parser with the default banner heuristic.
func NewParser() *Parser {
	return &Parser{isBanner: DefaultBannerPredicate}
}

// NewParserWithBannerPredicate overrides the banner heuristic.
func NewParserWithBannerPredicate(predicate BannerPredicate) *Parser {
	if predicate == nil {
		predicate = DefaultBannerPredicate
	}
	return &Parser{isBanner: predicate}
}

// Parse dispatches on the file extension and normalizes the result.
func (p *Parser) Parse(payload []byte, fileName string) (*Sheet, error) {
	if len(payload) == 0 {
		return nil, domain.NewError(domain.CodeEmptyFile, "uploaded file %q is empty", fileName)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv", ".txt":
		records, err := parseDelimited(payload)
		if err != nil {
			return nil, err
		}
		return p.normalize(records, "csv")
	case ".xlsx":
		records, err := parseWorkbook(payload)
		if err != nil {
			return nil, err
		}
		return p.normalize(records, "xlsx")
	default:
		return nil, domain.NewError(domain.CodeUnsupportedFileFormat, "unsupported file format %q", ext)
	}
}

func parseDelimited(payload []byte) ([][]string, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, domain.WrapError(domain.CodeNoDataRows, err, "file is not readable as delimited text")
	}
	return records, nil
}

func parseWorkbook(payload []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, domain.WrapError(domain.CodeUnsupportedFileFormat, err, "file is not readable as a workbook")
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.NewError(domain.CodeNoDataRows, "workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, domain.WrapError(domain.CodeNoDataRows, err, "workbook rows are not readable")
	}
	return rows, nil
}

func (p *Parser) normalize(records [][]string, format string) (*Sheet, error) {
	if len(records) == 0 {
		return nil, domain.NewError(domain.CodeNoDataRows, "no rows found in file")
	}

	headerIndex := 0
	var warnings []string
	if p.isBanner(records[0]) {
		headerIndex = 1
		warnings = append(warnings,
			"first row looked like a report banner and was skipped; verify the detected headers if columns are missing")
		if len(records) < 2 {
			return nil, domain.NewError(domain.CodeNoDataRows, "file contains only a report banner")
		}
	}

	headerRow := records[headerIndex]
	headers := make([]string, len(headerRow))
	for i, value := range headerRow {
		headers[i] = strings.TrimSpace(value)
	}

	var rows []map[string]string
	for _, record := range records[headerIndex+1:] {
		row := make(map[string]string, len(headers))
		for col, header := range headers {
			if header == "" || col >= len(record) {
				continue
			}
			value := strings.TrimSpace(record[col])
			if value == "" {
				continue
			}
			row[header] = value
		}
		if len(row) == 0 {
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, domain.NewError(domain.CodeNoDataRows, "file has headers but no data rows")
	}

	return &Sheet{
		Headers:       headers,
		Rows:          rows,
		DataStartLine: headerIndex + 2,
		Format:        format,
		Warnings:      warnings,
	}, nil
}

// ValidateRequiredColumns checks the parsed headers against the columns a
// profile needs, case-insensitively.
func ValidateRequiredColumns(headers []string, required []string) (bool, []string) {
	present := make(map[string]bool, len(headers))
	for _, header := range headers {
		present[strings.ToLower(strings.TrimSpace(header))] = true
	}

	var missing []string
	for _, name := range required {
		if !present[strings.ToLower(strings.TrimSpace(name))] {
			missing = append(missing, name)
		}
	}
	return len(missing) == 0, missing
}
