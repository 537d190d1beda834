package report

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/talentai/insights-server/analysis"
	"github.com/talentai/insights-server/survey"
)

// exportHeader is the column layout shared by CSV and XLSX exports:
// respondent meta, one column per question, one per dimension mean, total.
func exportHeader() []string {
	header := []string{"序号", "姓名", "部门", "工号", "管理年限", "团队规模"}
	for _, q := range survey.Questions {
		header = append(header, fmt.Sprintf("%s-%s", q.Dimension, q.Behavior))
	}
	for _, dim := range survey.DimensionOrder {
		header = append(header, dim+"均分")
	}
	header = append(header, "总分")
	return header
}

func exportRow(p *analysis.Person) []string {
	row := []string{
		fmt.Sprintf("%d", p.Seq),
		p.Name,
		p.Dept,
		p.Employee,
		p.Tenure,
		p.TeamSize,
	}
	for _, s := range p.Scores {
		if s == nil {
			row = append(row, "")
		} else {
			row = append(row, fmt.Sprintf("%.0f", *s))
		}
	}
	dims := analysis.PersonDimensions(p)
	for _, dim := range survey.DimensionOrder {
		if v, ok := dims[dim]; ok {
			row = append(row, fmt.Sprintf("%.2f", v))
		} else {
			row = append(row, "")
		}
	}
	if total, ok := analysis.PersonTotal(p); ok {
		row = append(row, fmt.Sprintf("%.2f", total))
	} else {
		row = append(row, "")
	}
	return row
}

// BuildCSV writes the scored rows as UTF-8 CSV with a BOM so spreadsheet
// software opens the Chinese headers correctly.
func BuildCSV(snap *analysis.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("\xEF\xBB\xBF")

	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader()); err != nil {
		return nil, err
	}
	for i := range snap.People {
		if err := w.Write(exportRow(&snap.People[i])); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildXLSX writes the same layout as BuildCSV into a workbook.
func BuildXLSX(snap *analysis.Snapshot) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	header := exportHeader()
	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &cells); err != nil {
		return nil, err
	}
	if styleID, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(header), 1)
		_ = f.SetCellStyle(sheet, "A1", last, styleID)
	}

	for i := range snap.People {
		row := exportRow(&snap.People[i])
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
