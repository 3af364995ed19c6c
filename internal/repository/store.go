package repository

import (
	"context"

	"github.com/stemsi/eduassess-backend/internal/model"
)

// RecordStore is the persistent archive of exams, submissions and the
// educator profile. Submissions are append-only.
type RecordStore interface {
	GetExams(ctx context.Context) ([]model.Exam, error)
	GetSubmissions(ctx context.Context) ([]model.Submission, error)
	IsIDUsedForExam(ctx context.Context, studentID, examID string) (bool, error)
	SaveSubmission(ctx context.Context, sub model.Submission) error
	// GetTeacher returns nil, nil when no profile has been saved.
	GetTeacher(ctx context.Context) (*model.Teacher, error)
	SaveExam(ctx context.Context, exam model.Exam) error
	SaveTeacher(ctx context.Context, teacher model.Teacher) error
}

// BatchWriter persists many submissions in one round trip. Writing a
// submission whose ID already exists is a no-op, so batches can be retried.
type BatchWriter interface {
	SaveSubmissions(ctx context.Context, subs []model.Submission) error
}

// SQLStore is a RecordStore backed by a SQL database.
type SQLStore interface {
	RecordStore
	BatchWriter
	Close() error
}
