package model

import "strings"

// StudentIdentity is a self-registered student. It is not authenticated;
// the ID only keys the one-attempt-per-exam check.
type StudentIdentity struct {
	Name   string `json:"name"`
	ID     string `json:"student_id"`
	Gender string `json:"gender,omitempty"`
}

// Normalize trims surrounding whitespace from every field.
func (s StudentIdentity) Normalize() StudentIdentity {
	return StudentIdentity{
		Name:   strings.TrimSpace(s.Name),
		ID:     strings.TrimSpace(s.ID),
		Gender: strings.TrimSpace(s.Gender),
	}
}

// Complete reports whether both name and ID are present.
func (s StudentIdentity) Complete() bool {
	return s.Name != "" && s.ID != ""
}

// StartAttemptRequest is the student registration payload.
type StartAttemptRequest struct {
	Name      string `json:"name" binding:"required,max=100"`
	StudentID string `json:"student_id" binding:"required,max=50"`
	Gender    string `json:"gender" binding:"omitempty,oneof=male female other"`
}

// Identity converts the request into a normalized StudentIdentity.
func (r StartAttemptRequest) Identity() StudentIdentity {
	return StudentIdentity{Name: r.Name, ID: r.StudentID, Gender: r.Gender}.Normalize()
}

// SelectAnswerRequest sets one slot of the answer vector.
type SelectAnswerRequest struct {
	QuestionIndex *int `json:"question_index" binding:"required,min=0"`
	OptionIndex   *int `json:"option_index" binding:"required,min=0"`
}
