// Package export renders an exam's archived submissions as downloadable
// grade reports (PDF, XLSX and a Word-compatible HTML document).
package export

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/stemsi/eduassess-backend/internal/model"
)

// Format identifies a report encoding.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
	FormatDOC  Format = "doc"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// Report labels. The institution's grade sheets are French.
const (
	ReportTitle        = "NOTE DE CONTRÔLE CONTINU"
	ColStudent         = "NOM ET PRÉNOMS"
	ColStudentID       = "MATRICULE"
	ColCC              = "CC"
	ColParticipation   = "Participation"
	ColFinalGrade      = "Note finale"
	AcademicYearPrefix = "Année académique"
)

// HeaderColor is the grade-sheet header fill, as RRGGBB.
const HeaderColor = "5CB85C"

// Row is one student's line on the grade sheet. The participation mark is
// always zero and the final grade equals the continuous assessment score.
type Row struct {
	StudentName   string
	StudentID     string
	CC            int
	Participation int
	FinalGrade    int
	University    string
	Department    string
	AcademicYear  string
}

// Report is everything a renderer needs. Renderers never touch the store.
type Report struct {
	ExamTitle   string
	Teacher     model.Teacher
	Rows        []Row
	GeneratedAt time.Time
}

// File is a rendered report ready to be served.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

// defaultTeacher fills the letterhead when no profile snapshot exists.
var defaultTeacher = model.Teacher{
	Name:         "N/A",
	University:   "Université Polytechnique de Mongo",
	School:       "Faculté des Mines et Géologie",
	Department:   "Département de Géomatique",
	Subject:      "Examen",
	AcademicYear: "2025-2026",
}

// NewReport builds the grade sheet for exam from its submissions. The
// letterhead comes from the first submission's teacher snapshot, then from
// profile, then from defaults.
func NewReport(exam model.Exam, profile *model.Teacher, subs []model.Submission, now time.Time) Report {
	teacher := defaultTeacher
	switch {
	case len(subs) > 0 && subs[0].TeacherInfo != nil:
		teacher = *subs[0].TeacherInfo
	case profile != nil:
		teacher = *profile
	}

	rows := make([]Row, 0, len(subs))
	for _, s := range subs {
		row := Row{
			StudentName: strings.ToUpper(s.StudentName),
			StudentID:   s.StudentID,
			CC:          s.Score,
			FinalGrade:  s.Score,
		}
		if s.TeacherInfo != nil {
			row.University = s.TeacherInfo.University
			row.Department = s.TeacherInfo.Department
			row.AcademicYear = s.TeacherInfo.AcademicYear
		}
		rows = append(rows, row)
	}

	return Report{
		ExamTitle:   exam.Title,
		Teacher:     teacher,
		Rows:        rows,
		GeneratedAt: now,
	}
}

// ParseFormat validates a ?format= value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPDF, FormatXLSX, FormatDOC:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Render encodes r in the requested format.
func Render(format Format, r Report) (*File, error) {
	switch format {
	case FormatPDF:
		body, err := RenderPDF(r)
		if err != nil {
			return nil, fmt.Errorf("render pdf: %w", err)
		}
		return &File{Name: "UPM_Report_" + fileSlug(r.ExamTitle) + ".pdf", ContentType: "application/pdf", Body: body}, nil

	case FormatXLSX:
		body, err := RenderXLSX(r)
		if err != nil {
			return nil, fmt.Errorf("render xlsx: %w", err)
		}
		return &File{
			Name:        "Report_" + fileSlug(r.ExamTitle) + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Body:        body,
		}, nil

	case FormatDOC:
		body, err := RenderDOC(r)
		if err != nil {
			return nil, fmt.Errorf("render doc: %w", err)
		}
		return &File{Name: "Report_" + fileSlug(r.ExamTitle) + ".doc", ContentType: "application/msword", Body: body}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

var unsafeFileChars = regexp.MustCompile(`[^\p{L}\p{N}_.-]+`)

// fileSlug turns an exam title into a download-safe file name stem.
func fileSlug(title string) string {
	slug := unsafeFileChars.ReplaceAllString(strings.TrimSpace(title), "_")
	slug = strings.Trim(slug, "_")
	if slug == "" {
		return "exam"
	}
	return slug
}
