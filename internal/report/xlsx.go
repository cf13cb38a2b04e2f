package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"example.com/canview/internal/highlight"
)

var xlsxColumnWidths = []float64{8, 26, 24, 40, 32, 48}

// SaveViewXLSX writes rep to a workbook file.
func SaveViewXLSX(rep ViewReport, out string, lang Language) error {
	f, err := buildWorkbook(rep, NewTranslator(lang))
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(out)
}

// WriteViewXLSX streams rep as a workbook.
func WriteViewXLSX(w io.Writer, rep ViewReport, lang Language) error {
	f, err := buildWorkbook(rep, NewTranslator(lang))
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// buildWorkbook lays out one sheet: a header row, then the visible rows with
// their highlight colours, then the truncation notice when there is one.
func buildWorkbook(rep ViewReport, tr Translator) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := tr.T("sheet")
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		f.Close()
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F0F0F0"}},
	})
	if err != nil {
		f.Close()
		return nil, err
	}
	var headers []interface{}
	for _, h := range tr.Columns() {
		headers = append(headers, h)
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		f.Close()
		return nil, err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	for i, width := range xlsxColumnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			f.Close()
			return nil, err
		}
	}

	styles := make(map[highlight.Style]int)
	for i, r := range rep.Rows {
		rowNum := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, rowNum)
		values := []interface{}{r.LineNumber, r.Time, r.FromTo, r.IDDisplay, r.DataHex, r.Description}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			f.Close()
			return nil, err
		}
		if r.Style == nil {
			continue
		}
		styleID, ok := styles[*r.Style]
		if !ok {
			styleID, err = f.NewStyle(cellStyle(*r.Style))
			if err != nil {
				f.Close()
				return nil, err
			}
			styles[*r.Style] = styleID
		}
		if err := f.SetCellStyle(sheet, cell, fmt.Sprintf("%s%d", lastCol, rowNum), styleID); err != nil {
			f.Close()
			return nil, err
		}
	}

	if msg := tr.SummaryMessage(rep.Summary); msg != "" {
		cell, _ := excelize.CoordinatesToCellName(1, len(rep.Rows)+3)
		if err := f.SetCellValue(sheet, cell, msg); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func cellStyle(s highlight.Style) *excelize.Style {
	style := &excelize.Style{}
	if r, g, b, ok := highlight.ParseColor(s.BackgroundColor); ok {
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{hexColor(r, g, b)}}
	}
	if r, g, b, ok := highlight.ParseColor(s.TextColor); ok {
		style.Font = &excelize.Font{Color: hexColor(r, g, b)}
	}
	return style
}

func hexColor(r, g, b int) string {
	return strings.ToUpper(fmt.Sprintf("%02x%02x%02x", r, g, b))
}
