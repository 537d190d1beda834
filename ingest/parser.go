// Package ingest turns uploaded survey workbooks (xlsx/csv) into scored rows.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/talentai/insights-server/survey"
)

var ErrNoQuestionColumns = errors.New("未识别到问卷题目列，请检查表头。")

// ParsedRespondent is one workbook row, scores aligned with survey.Questions.
type ParsedRespondent struct {
	Seq             int
	Name            string
	Dept            string
	Employee        string
	Tenure          string
	TeamSize        string
	LearningModules string
	// Scores[i] corresponds to survey.Questions[i]; nil when the column is
	// missing or the cell is not a recognized answer.
	Scores   []*float64
	Feedback map[string]string // feedback column header -> content
}

// ParsedWorkbook carries everything the upload handler persists.
type ParsedWorkbook struct {
	Respondents   []ParsedRespondent
	QuestionCount int // matched question columns
	// QuestionColumns holds the matched source header per bank question,
	// aligned with survey.Questions; "" where no column matched.
	QuestionColumns []string
	FeedbackColumns []string // headers recognized as open-text feedback
}

// Parse reads the whole upload and matches headers against the question bank.
// File type is decided from the filename extension; the first sheet is used
// for workbooks.
func Parse(r io.Reader, filename string) (*ParsedWorkbook, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	var rows [][]string
	var err error
	switch ext {
	case ".csv":
		rows, err = readCSV(r)
	case ".xlsx", ".xlsm", ".xls":
		rows, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("不支持的文件类型：%s", ext)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, errors.New("文件中没有数据行")
	}
	return fromRows(rows)
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("CSV 解析失败：%w", err)
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("工作簿解析失败：%w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("工作簿中没有工作表")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("工作表读取失败：%w", err)
	}
	return rows, nil
}

func fromRows(rows [][]string) (*ParsedWorkbook, error) {
	header := rows[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	// question index -> column index, first matching column wins
	qCols := make(map[int]int)
	for qi := range survey.Questions {
		for ci, h := range header {
			if h == "" {
				continue
			}
			if strings.Contains(h, survey.Questions[qi].Keyword) {
				if _, taken := qCols[qi]; !taken {
					qCols[qi] = ci
				}
				break
			}
		}
	}
	if len(qCols) == 0 {
		return nil, ErrNoQuestionColumns
	}

	questionCols := make(map[int]bool, len(qCols))
	for _, ci := range qCols {
		questionCols[ci] = true
	}

	nameCol := -1
	for _, want := range survey.NameColumns {
		for ci, h := range header {
			if h == want {
				nameCol = ci
				break
			}
		}
		if nameCol >= 0 {
			break
		}
	}

	deptCol, employeeCol := -1, -1
	learningCol, tenureCol, teamSizeCol := -1, -1, -1
	var feedbackCols []int
	var feedbackHeaders []string
	for ci, h := range header {
		if h == "" || questionCols[ci] || ci == nameCol {
			continue
		}
		switch {
		case h == survey.DeptColumn:
			deptCol = ci
		case h == survey.EmployeeColumn:
			employeeCol = ci
		case learningCol < 0 && survey.MatchLearningColumn(h):
			learningCol = ci
		case tenureCol < 0 && survey.MatchTenureColumn(h):
			tenureCol = ci
		case teamSizeCol < 0 && survey.MatchTeamSizeColumn(h):
			teamSizeCol = ci
		case survey.MatchFeedbackColumn(h):
			feedbackCols = append(feedbackCols, ci)
			feedbackHeaders = append(feedbackHeaders, h)
		}
	}

	questionHeaders := make([]string, len(survey.Questions))
	for qi, ci := range qCols {
		questionHeaders[qi] = header[ci]
	}

	wb := &ParsedWorkbook{
		QuestionCount:   len(qCols),
		QuestionColumns: questionHeaders,
		FeedbackColumns: feedbackHeaders,
	}

	for ri, row := range rows[1:] {
		if emptyRow(row) {
			continue
		}
		p := ParsedRespondent{
			Seq:      ri + 1,
			Name:     cellAt(row, nameCol),
			Dept:     cellAt(row, deptCol),
			Employee: cellAt(row, employeeCol),
			Tenure:   cellAt(row, tenureCol),
			TeamSize: cellAt(row, teamSizeCol),
			Scores:   make([]*float64, len(survey.Questions)),
			Feedback: make(map[string]string),
		}
		p.LearningModules = cellAt(row, learningCol)
		if p.Name == "" {
			p.Name = fmt.Sprintf("学员%d", len(wb.Respondents)+1)
		}
		for qi, ci := range qCols {
			p.Scores[qi] = toScore(cellAt(row, ci))
		}
		for i, ci := range feedbackCols {
			if v := cellAt(row, ci); !emptyFeedback(v) {
				p.Feedback[feedbackHeaders[i]] = v
			}
		}
		wb.Respondents = append(wb.Respondents, p)
	}
	if len(wb.Respondents) == 0 {
		return nil, errors.New("文件中没有数据行")
	}
	return wb, nil
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Placeholder answers people type instead of leaving the cell blank.
func emptyFeedback(v string) bool {
	switch v {
	case "", "无", "-", "—", "nan":
		return true
	}
	return false
}

func emptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// toScore maps an answer cell to its numeric value. Unknown text becomes nil
// and is excluded from every average downstream. Numeric cells in range are
// accepted as-is so pre-scored exports round-trip.
func toScore(cell string) *float64 {
	if cell == "" {
		return nil
	}
	if v, ok := survey.ScoreMap[cell]; ok {
		s := v
		return &s
	}
	if v, err := strconv.ParseFloat(cell, 64); err == nil && v >= 1 && v <= 5 {
		return &v
	}
	return nil
}
