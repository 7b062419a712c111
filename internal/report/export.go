package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// WriteCSV writes the summary as section,name,value rows.
func WriteCSV(w io.Writer, summary Summary) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"section", "name", "value"},
		{"totals", "total_revenue", summary.TotalRevenue.StringFixed(2)},
		{"totals", "total_cost", summary.TotalCost.StringFixed(2)},
		{"totals", "profit", summary.Profit.StringFixed(2)},
	}
	for _, month := range summary.MonthlySales {
		rows = append(rows, []string{"monthly_sales", month.Name, month.Value.StringFixed(2)})
	}
	for _, product := range summary.TopProducts {
		rows = append(rows, []string{"top_products", product.Name, product.Value.String()})
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv report: %w", err)
	}
	return nil
}

// BuildWorkbook renders the summary into a workbook with one sheet per
// section. The caller owns the returned file and must close it.
func BuildWorkbook(summary Summary) (*excelize.File, error) {
	f := excelize.NewFile()

	const totalsSheet = "Summary"
	if err := f.SetSheetName("Sheet1", totalsSheet); err != nil {
		f.Close()
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	if err != nil {
		f.Close()
		return nil, err
	}
	totalStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	writeHeader := func(sheet string, headers ...string) {
		for i, h := range headers {
			col, _ := excelize.ColumnNumberToName(i + 1)
			cell := fmt.Sprintf("%s1", col)
			f.SetCellValue(sheet, cell, h)
			f.SetCellStyle(sheet, cell, cell, headerStyle)
		}
		f.SetColWidth(sheet, "A", "A", 24)
		f.SetColWidth(sheet, "B", "B", 16)
	}

	writeHeader(totalsSheet, "Metric", "Value")
	f.SetCellValue(totalsSheet, "A2", "Total revenue")
	f.SetCellValue(totalsSheet, "B2", summary.TotalRevenue.InexactFloat64())
	f.SetCellValue(totalsSheet, "A3", "Total cost")
	f.SetCellValue(totalsSheet, "B3", summary.TotalCost.InexactFloat64())
	f.SetCellValue(totalsSheet, "A4", "Profit")
	f.SetCellValue(totalsSheet, "B4", summary.Profit.InexactFloat64())
	f.SetCellStyle(totalsSheet, "A4", "B4", totalStyle)
	f.SetCellValue(totalsSheet, "A6", "Generated at")
	f.SetCellValue(totalsSheet, "B6", summary.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	sections := []struct {
		sheet  string
		header string
		values []NamedValue
	}{
		{"Monthly Sales", "Month", summary.MonthlySales},
		{"Top Products", "Product", summary.TopProducts},
	}
	for _, section := range sections {
		if _, err := f.NewSheet(section.sheet); err != nil {
			f.Close()
			return nil, err
		}
		writeHeader(section.sheet, section.header, "Value")
		for i, item := range section.values {
			row := i + 2
			f.SetCellValue(section.sheet, fmt.Sprintf("A%d", row), item.Name)
			f.SetCellValue(section.sheet, fmt.Sprintf("B%d", row), item.Value.InexactFloat64())
		}
	}

	return f, nil
}

// WriteXLSX streams the workbook for summary to w.
func WriteXLSX(w io.Writer, summary Summary) error {
	f, err := BuildWorkbook(summary)
	if err != nil {
		return fmt.Errorf("build xlsx report: %w", err)
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx report: %w", err)
	}
	return nil
}
