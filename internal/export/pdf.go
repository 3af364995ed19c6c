package export

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/signintech/gopdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	fontRegular = "goregular"
	fontBold    = "gobold"

	pageMarginX  = 56.0
	tableTop     = 185.0
	rowHeight    = 22.0
	pageBottom   = 790.0
	letterheadSz = 10
)

// column widths in points; they sum to the printable width of A4.
var pdfColumns = []struct {
	title string
	width float64
	align int
}{
	{ColStudent, 190, gopdf.Left | gopdf.Middle},
	{ColStudentID, 100, gopdf.Center | gopdf.Middle},
	{ColCC, 60, gopdf.Center | gopdf.Middle},
	{ColParticipation, 65, gopdf.Center | gopdf.Middle},
	{ColFinalGrade, 68, gopdf.Center | gopdf.Middle},
}

// RenderPDF lays out the grade sheet on A4 pages with the Go fonts, which
// cover the accented labels.
func RenderPDF(r Report) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})

	if err := pdf.AddTTFFontData(fontRegular, goregular.TTF); err != nil {
		return nil, fmt.Errorf("load regular font: %w", err)
	}
	if err := pdf.AddTTFFontData(fontBold, gobold.TTF); err != nil {
		return nil, fmt.Errorf("load bold font: %w", err)
	}

	pdf.AddPage()
	if err := drawLetterhead(pdf, r); err != nil {
		return nil, err
	}

	y := tableTop
	if err := drawTableHeader(pdf, y); err != nil {
		return nil, err
	}
	y += rowHeight

	for i, row := range r.Rows {
		if y+rowHeight > pageBottom {
			pdf.AddPage()
			y = pageMarginX
			if err := drawTableHeader(pdf, y); err != nil {
				return nil, err
			}
			y += rowHeight
		}
		if err := drawRow(pdf, y, i, row); err != nil {
			return nil, err
		}
		y += rowHeight
	}

	if err := drawFooter(pdf, r); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawLetterhead(pdf *gopdf.GoPdf, r Report) error {
	pdf.SetTextColor(0, 0, 0)

	if err := pdf.SetFont(fontBold, "", letterheadSz); err != nil {
		return err
	}
	pdf.SetXY(pageMarginX, 40)
	if err := pdf.Cell(nil, r.Teacher.University); err != nil {
		return err
	}

	if err := pdf.SetFont(fontRegular, "", letterheadSz); err != nil {
		return err
	}
	pdf.SetXY(pageMarginX, 56)
	if err := pdf.Cell(nil, r.Teacher.School); err != nil {
		return err
	}
	pdf.SetXY(pageMarginX, 72)
	if err := pdf.Cell(nil, r.Teacher.Department); err != nil {
		return err
	}

	year := AcademicYearPrefix + " " + r.Teacher.AcademicYear
	pdf.SetXY(pageMarginX, 40)
	if err := pdf.CellWithOption(&gopdf.Rect{W: tableWidth(), H: 12}, year, gopdf.CellOption{Align: gopdf.Right}); err != nil {
		return err
	}

	pdf.SetLineWidth(1)
	pdf.SetLineType("dotted")
	pdf.Line(pageMarginX, 100, pageMarginX+tableWidth(), 100)
	pdf.SetLineType("solid")

	if err := pdf.SetFont(fontBold, "", 14); err != nil {
		return err
	}
	pdf.SetXY(pageMarginX, 120)
	if err := pdf.CellWithOption(&gopdf.Rect{W: tableWidth(), H: 18}, ReportTitle, gopdf.CellOption{Align: gopdf.Center}); err != nil {
		return err
	}

	if err := pdf.SetFont(fontBold, "", 12); err != nil {
		return err
	}
	pdf.SetXY(pageMarginX, 145)
	return pdf.CellWithOption(&gopdf.Rect{W: tableWidth(), H: 16}, r.ExamTitle, gopdf.CellOption{Align: gopdf.Center})
}

func drawTableHeader(pdf *gopdf.GoPdf, y float64) error {
	pdf.SetFillColor(0x5C, 0xB8, 0x5C)
	pdf.RectFromUpperLeftWithStyle(pageMarginX, y, tableWidth(), rowHeight, "F")

	if err := pdf.SetFont(fontBold, "", 10); err != nil {
		return err
	}
	pdf.SetTextColor(255, 255, 255)

	x := pageMarginX
	for _, col := range pdfColumns {
		pdf.SetXY(x, y)
		if err := pdf.CellWithOption(&gopdf.Rect{W: col.width, H: rowHeight}, " "+col.title,
			gopdf.CellOption{Align: col.align, Border: gopdf.AllBorders}); err != nil {
			return err
		}
		x += col.width
	}
	pdf.SetTextColor(0, 0, 0)
	return nil
}

func drawRow(pdf *gopdf.GoPdf, y float64, index int, row Row) error {
	if index%2 == 1 {
		pdf.SetFillColor(245, 255, 245)
		pdf.RectFromUpperLeftWithStyle(pageMarginX, y, tableWidth(), rowHeight, "F")
	}
	pdf.SetStrokeColor(200, 200, 200)

	cells := []string{
		" " + row.StudentName,
		row.StudentID,
		strconv.Itoa(row.CC),
		strconv.Itoa(row.Participation),
		strconv.Itoa(row.FinalGrade),
	}

	x := pageMarginX
	for i, col := range pdfColumns {
		font := fontRegular
		if i == len(pdfColumns)-1 {
			font = fontBold
		}
		if err := pdf.SetFont(font, "", 10); err != nil {
			return err
		}
		pdf.SetXY(x, y)
		if err := pdf.CellWithOption(&gopdf.Rect{W: col.width, H: rowHeight}, cells[i],
			gopdf.CellOption{Align: col.align, Border: gopdf.AllBorders}); err != nil {
			return err
		}
		x += col.width
	}
	pdf.SetStrokeColor(0, 0, 0)
	return nil
}

func drawFooter(pdf *gopdf.GoPdf, r Report) error {
	if err := pdf.SetFont(fontRegular, "", 8); err != nil {
		return err
	}
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(pageMarginX, 810)
	text := "EduAssess · " + r.GeneratedAt.Format("02/01/2006 15:04")
	return pdf.CellWithOption(&gopdf.Rect{W: tableWidth(), H: 10}, text, gopdf.CellOption{Align: gopdf.Center})
}

func tableWidth() float64 {
	w := 0.0
	for _, col := range pdfColumns {
		w += col.width
	}
	return w
}
