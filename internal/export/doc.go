package export

import (
	"bytes"
	"html/template"
	"strings"
)

// Word opens an HTML body served as application/msword as a document.
var docTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"upper": strings.ToUpper,
}).Parse(`<html>
  <head><meta charset="utf-8"><title>{{.ExamTitle}}</title></head>
  <body style="font-family: Arial">
    <div style="text-align: center">
      <h2>{{upper .Teacher.University}}</h2>
      <p>{{.Teacher.School}}<br>{{.Teacher.Department}}</p>
      <hr>
      <h3>{{.Title}}</h3>
      <h4>{{.ExamTitle}}</h4>
    </div>
    <table border="1" style="width:100%; border-collapse: collapse">
      <tr style="background: #{{.HeaderColor}}; color: white">
        {{range .Columns}}<th>{{.}}</th>{{end}}
      </tr>
      {{- range .Rows}}
      <tr>
        <td>{{.StudentName}}</td><td>{{.StudentID}}</td><td align="center">{{.CC}}</td><td align="center">{{.Participation}}</td><td align="center"><b>{{.FinalGrade}}</b></td>
      </tr>
      {{- end}}
    </table>
    <p style="text-align: center; margin-top: 50px; font-size: 8pt">EduAssess · {{.GeneratedAt.Format "02/01/2006 15:04"}}</p>
  </body>
</html>
`))

// RenderDOC renders the grade sheet as a Word-compatible HTML document.
func RenderDOC(r Report) ([]byte, error) {
	data := struct {
		Report
		Title       string
		HeaderColor template.CSS
		Columns     []string
	}{
		Report:      r,
		Title:       ReportTitle,
		HeaderColor: template.CSS(HeaderColor),
		Columns:     []string{ColStudent, ColStudentID, ColCC, ColParticipation, ColFinalGrade},
	}

	var buf bytes.Buffer
	if err := docTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
