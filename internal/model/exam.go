package model

import (
	"time"
)

// OptionsPerQuestion is the fixed number of options a question carries.
const OptionsPerQuestion = 4

// Exam is an exam definition. It is immutable once created.
type Exam struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	TeacherID       string     `json:"teacher_id"`
	Questions       []Question `json:"questions"`
	DurationMinutes int        `json:"duration_minutes"`
	AccessCode      string     `json:"access_code"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Question is a single-select multiple choice question.
type Question struct {
	ID                 string   `json:"id"`
	Text               string   `json:"text"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correct_answer_index"`
	Points             int      `json:"points"`
}

// DurationSeconds returns the exam's time allowance in seconds.
func (e *Exam) DurationSeconds() int {
	return e.DurationMinutes * 60
}

// TotalPoints sums the points of every question.
func (e *Exam) TotalPoints() int {
	total := 0
	for _, q := range e.Questions {
		total += q.Points
	}
	return total
}

// ShareLink returns the location fragment students open to reach the exam.
func (e *Exam) ShareLink() string {
	return "#/exam/" + e.AccessCode
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title           string                  `json:"title" binding:"required,min=1,max=255"`
	Description     string                  `json:"description" binding:"omitempty,max=2000"`
	DurationMinutes int                     `json:"duration_minutes" binding:"required,min=1,max=480"`
	Questions       []CreateQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

// CreateQuestionRequest is one question inside CreateExamRequest.
// The correct index is range-checked against options by a struct-level rule.
type CreateQuestionRequest struct {
	Text               string   `json:"text" binding:"required,min=1,max=2000"`
	Options            []string `json:"options" binding:"required,len=4,dive,required,max=500"`
	CorrectAnswerIndex int      `json:"correct_answer_index" binding:"min=0"`
	Points             int      `json:"points" binding:"required,min=1,max=100"`
}

// ExamSummary is the teacher dashboard view of an exam.
type ExamSummary struct {
	Exam
	ShareLink       string `json:"share_link"`
	QuestionCount   int    `json:"question_count"`
	TotalPoints     int    `json:"total_points"`
	SubmissionCount int    `json:"submission_count"`
}

// ExamPaper is the student-facing exam payload (no correct answers).
type ExamPaper struct {
	ExamID          string               `json:"exam_id"`
	Title           string               `json:"title"`
	Description     string               `json:"description,omitempty"`
	DurationMinutes int                  `json:"duration_minutes"`
	AccessCode      string               `json:"access_code"`
	TotalPoints     int                  `json:"total_points"`
	Questions       []QuestionForStudent `json:"questions"`
}

// QuestionForStudent is a question without the correct answer, sent to students.
type QuestionForStudent struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Points  int      `json:"points"`
}

// Paper strips the answer key from the exam.
func (e *Exam) Paper() ExamPaper {
	qs := make([]QuestionForStudent, 0, len(e.Questions))
	for _, q := range e.Questions {
		qs = append(qs, QuestionForStudent{
			ID:      q.ID,
			Text:    q.Text,
			Options: append([]string(nil), q.Options...),
			Points:  q.Points,
		})
	}
	return ExamPaper{
		ExamID:          e.ID,
		Title:           e.Title,
		Description:     e.Description,
		DurationMinutes: e.DurationMinutes,
		AccessCode:      e.AccessCode,
		TotalPoints:     e.TotalPoints(),
		Questions:       qs,
	}
}
