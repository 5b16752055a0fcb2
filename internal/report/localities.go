package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"palatlas-go/internal/views"
)

// ReadLocalities loads city/country pairs from the first sheet of a workbook.
// Columns are found by header name; without a recognizable header the first
// two columns are used.
func ReadLocalities(r io.Reader) ([]views.Locality, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data rows")
	}

	cityIdx, countryIdx := -1, -1
	for i, h := range rows[0] {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case cityIdx == -1 && (strings.Contains(l, "city") || strings.Contains(l, "locality")):
			cityIdx = i
		case countryIdx == -1 && strings.Contains(l, "country"):
			countryIdx = i
		}
	}
	start := 1
	// fallback: headerless sheet
	if cityIdx == -1 {
		cityIdx, countryIdx, start = 0, 1, 0
	}

	var out []views.Locality
	for _, row := range rows[start:] {
		loc := views.Locality{City: cell(row, cityIdx), Country: strings.ToUpper(cell(row, countryIdx))}
		if loc.City == "" {
			continue
		}
		out = append(out, loc)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no localities found")
	}
	return out, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
