package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"palatlas-go/internal/types"
)

const (
	SheetSummary    = "Summary"
	SheetTopRated   = "Top Rated"
	SheetPopular    = "Popular Brands"
	SheetCategories = "Categories"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// FileName is the attachment name for a locality export.
func FileName(s types.Summary) string {
	name := strings.ToLower(strings.TrimSpace(s.City))
	name = strings.Join(strings.Fields(name), "-")
	if name == "" {
		name = "locality"
	}
	return fmt.Sprintf("palatlas-%s.xlsx", name)
}

// Write renders the summary as a four-sheet workbook.
func Write(w io.Writer, s types.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	rows := [][]any{
		{"City", s.City},
		{"Country", s.Country},
		{"Resolved locality", s.Locality},
		{"Brands fetched", s.BrandsCount},
		{"Places fetched", s.PlacesCount},
		{"Brands sampled", len(s.Brands)},
		{"Places sampled", len(s.Places)},
	}
	if err := writeRows(f, SheetSummary, rows); err != nil {
		return err
	}

	if err := writeRanked(f, SheetTopRated, "Rating", s.TopRatedPlaces); err != nil {
		return err
	}
	if err := writeRanked(f, SheetPopular, "Popularity", s.PopularBrands); err != nil {
		return err
	}

	cats := [][]any{{"Kind", "Category", "Count"}}
	for _, cc := range s.BrandCategories.Top(0) {
		cats = append(cats, []any{"brand", cc.Category, cc.Count})
	}
	for _, cc := range s.PlaceCategories.Top(0) {
		cats = append(cats, []any{"place", cc.Category, cc.Count})
	}
	if err := writeSheet(f, SheetCategories, cats); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRanked(f *excelize.File, sheet, metric string, ranked []types.RankedEntity) error {
	rows := [][]any{{"Rank", "Name", metric, "Categories"}}
	for i, r := range ranked {
		rows = append(rows, []any{i + 1, r.Name, r.MetricValue, strings.Join(r.TagsPreview, ", ")})
	}
	return writeSheet(f, sheet, rows)
}

func writeSheet(f *excelize.File, sheet string, rows [][]any) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %q: %w", sheet, err)
	}
	return writeRows(f, sheet, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
