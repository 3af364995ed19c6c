package model

import "time"

// Unanswered marks an answer slot the student never selected.
const Unanswered = -1

// Submission is the archived, append-only result of one attempt.
type Submission struct {
	ID            string    `json:"id"`
	ExamID        string    `json:"exam_id"`
	StudentName   string    `json:"student_name"`
	StudentID     string    `json:"student_id"`
	StudentGender string    `json:"student_gender,omitempty"`
	Answers       []int     `json:"answers"`
	Score         int       `json:"score"`
	TotalPoints   int       `json:"total_points"`
	Timestamp     time.Time `json:"timestamp"`
	TeacherInfo   *Teacher  `json:"teacher_info,omitempty"`
}

// Dashboard aggregates the educator's archive.
type Dashboard struct {
	TotalExams       int     `json:"total_exams"`
	TotalStudents    int     `json:"total_students"`
	TotalSubmissions int     `json:"total_submissions"`
	AveragePercent   float64 `json:"average_percent"`
}
