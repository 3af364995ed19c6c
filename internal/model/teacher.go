package model

// Teacher is the single educator profile of the institution.
// A copy is embedded in every Submission at finalize time.
type Teacher struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	School       string `json:"school"`
	University   string `json:"university"`
	Department   string `json:"department"`
	Email        string `json:"email"`
	Subject      string `json:"subject"`
	Level        string `json:"level"`
	AcademicYear string `json:"academic_year"`
}

// SaveTeacherRequest is the payload for creating or updating the profile.
type SaveTeacherRequest struct {
	Name         string `json:"name" binding:"required,min=2,max=100"`
	School       string `json:"school" binding:"max=200"`
	University   string `json:"university" binding:"max=200"`
	Department   string `json:"department" binding:"max=200"`
	Email        string `json:"email" binding:"omitempty,email"`
	Subject      string `json:"subject" binding:"max=100"`
	Level        string `json:"level" binding:"max=100"`
	AcademicYear string `json:"academic_year" binding:"max=20"`
}

// TeacherLoginRequest carries the shared educator access phrase.
type TeacherLoginRequest struct {
	AccessPhrase string `json:"access_phrase" binding:"required,max=256"`
}

// TeacherLoginResponse is returned after a successful educator login.
type TeacherLoginResponse struct {
	Token   string   `json:"token"`
	Teacher *Teacher `json:"teacher,omitempty"`
}
