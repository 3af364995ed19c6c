package export

import (
	"bytes"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Results"

var xlsxHeader = []interface{}{
	ColStudent, ColStudentID, ColCC, ColParticipation, ColFinalGrade,
	"University", "Department", "Year",
}

// RenderXLSX writes one "Results" sheet with a header row and a line per
// submission, including the teacher snapshot each submission carried.
func RenderXLSX(r Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(xlsxSheet, "A1", &xlsxHeader); err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{HeaderColor}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(xlsxSheet, "A1", "H1", headerStyle); err != nil {
		return nil, err
	}

	for i, row := range r.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []interface{}{
			row.StudentName, row.StudentID, row.CC, row.Participation, row.FinalGrade,
			row.University, row.Department, row.AcademicYear,
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &values); err != nil {
			return nil, err
		}
	}

	if err := f.SetColWidth(xlsxSheet, "A", "A", 32); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(xlsxSheet, "B", "E", 14); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(xlsxSheet, "F", "H", 28); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
