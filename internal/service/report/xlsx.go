package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
	"github.com/xuri/excelize/v2"
)

const monthlySheetName = "Attendance"

// EncodeMonthlyXLSX renders the same rows as EncodeMonthlyCSV into a workbook
// with a bold title and a shaded table header.
func EncodeMonthlyXLSX(emp employee.Employee, s attendance.MonthlySummary, loc *time.Location) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", monthlySheetName); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create title style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	rows := monthlyRows(emp, s, loc)
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(monthlySheetName, cell, value); err != nil {
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}

		style := 0
		switch {
		case r == 0:
			style = titleStyle
		case len(row) == len(monthlyTableHeader) && row[0] == monthlyTableHeader[0]:
			style = headerStyle
		}
		if style == 0 {
			continue
		}
		first, _ := excelize.CoordinatesToCellName(1, r+1)
		last, _ := excelize.CoordinatesToCellName(len(row), r+1)
		if err := f.SetCellStyle(monthlySheetName, first, last, style); err != nil {
			return nil, fmt.Errorf("failed to set row style: %w", err)
		}
	}

	widths := []float64{22, 26, 12, 12, 12, 12}
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(monthlySheetName, col, col, w); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
