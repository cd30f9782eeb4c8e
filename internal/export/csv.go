package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sensing-garden/backend/internal/domain"
)

// Render flattens items and assembles the export as a header line plus one
// CSV line per item, in input order. Cells are minimally quoted and missing
// columns render as empty strings. Empty input returns ("", nil).
func Render(items []domain.Record, table domain.TableType) (string, []string, error) {
	if len(items) == 0 {
		return "", nil, nil
	}

	flats := make([]map[string]string, len(items))
	present := make(map[string]bool)
	for i, item := range items {
		flats[i] = Flatten(item, table)
		for col := range flats[i] {
			present[col] = true
		}
	}
	columns := orderColumns(present)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	writeLine := func(fields []string) (string, error) {
		buf.Reset()
		if err := w.Write(fields); err != nil {
			return "", err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return "", err
		}
		return strings.TrimRight(buf.String(), "\r\n"), nil
	}

	fields := make([]string, len(columns))
	for i, col := range columns {
		fields[i] = neutralizeFormula(col)
	}
	header, err := writeLine(fields)
	if err != nil {
		return "", nil, fmt.Errorf("writing header: %w", err)
	}

	rows := make([]string, len(items))
	for i, flat := range flats {
		for j, col := range columns {
			fields[j] = neutralizeFormula(flat[col])
		}
		rows[i], err = writeLine(fields)
		if err != nil {
			return "", nil, fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	return header, rows, nil
}

// RenderComplete renders items as one CSV document, header first. Empty
// input renders as "".
func RenderComplete(items []domain.Record, table domain.TableType) (string, error) {
	header, rows, err := Render(items, table)
	if err != nil {
		return "", err
	}
	if header == "" && len(rows) == 0 {
		return "", nil
	}
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, header)
	lines = append(lines, rows...)
	return strings.Join(lines, "\n"), nil
}

// neutralizeFormula guards against spreadsheet formula injection: a cell
// whose first character is a formula trigger gets an apostrophe prefix.
// Cells that parse as plain numbers are exempt, since spreadsheets read
// them as numeric and prefixing would mangle negative readings and
// coordinates.
func neutralizeFormula(cell string) string {
	if cell == "" {
		return cell
	}
	switch cell[0] {
	case '=', '+', '-', '@':
		if _, err := strconv.ParseFloat(cell, 64); err == nil {
			return cell
		}
		return "'" + cell
	}
	return cell
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename replaces every character outside [A-Za-z0-9_.-] with an
// underscore so caller-supplied names are safe in a Content-Disposition
// header.
func SanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}

// DefaultFilename names an export for download, e.g.
// sensing_garden_detections_20230715_103000.csv.
func DefaultFilename(table domain.TableType, now time.Time) string {
	return fmt.Sprintf("sensing_garden_%ss_%s.csv", table, now.Format("20060102_150405"))
}
