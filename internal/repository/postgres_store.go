package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/eduassess-backend/internal/model"
)

// PostgresStore persists records in PostgreSQL. Questions, answers and the
// teacher snapshot are stored as JSONB. The schema lives in migrations/.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const insertSubmissionPG = `
	INSERT INTO submissions
		(id, exam_id, student_name, student_id, student_gender, answers, score, total_points, submitted_at, teacher_info)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (id) DO NOTHING`

// GetExams retrieves all exams, newest first.
func (r *PostgresStore) GetExams(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, description, teacher_id, questions, duration_minutes, access_code, created_at
		 FROM exams
		 ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		var questions []byte
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.TeacherID, &questions,
			&e.DurationMinutes, &e.AccessCode, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(questions, &e.Questions); err != nil {
			return nil, fmt.Errorf("decode questions of exam %s: %w", e.ID, err)
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// GetSubmissions retrieves every submission in the order it was archived.
func (r *PostgresStore) GetSubmissions(ctx context.Context) ([]model.Submission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, student_name, student_id, student_gender, answers, score, total_points, submitted_at, teacher_info
		 FROM submissions
		 ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		var s model.Submission
		var answers, teacher []byte
		if err := rows.Scan(&s.ID, &s.ExamID, &s.StudentName, &s.StudentID, &s.StudentGender,
			&answers, &s.Score, &s.TotalPoints, &s.Timestamp, &teacher); err != nil {
			return nil, err
		}
		if err := decodeSubmissionJSON(&s, answers, teacher); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *PostgresStore) IsIDUsedForExam(ctx context.Context, studentID, examID string) (bool, error) {
	var used bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM submissions WHERE exam_id = $1 AND student_id = $2)`,
		examID, studentID,
	).Scan(&used)
	return used, err
}

// SaveSubmission appends a submission. Re-saving the same ID is a no-op.
func (r *PostgresStore) SaveSubmission(ctx context.Context, sub model.Submission) error {
	args, err := submissionArgs(sub)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, insertSubmissionPG, args...)
	return err
}

// SaveSubmissions appends subs in a single batch round trip.
func (r *PostgresStore) SaveSubmissions(ctx context.Context, subs []model.Submission) error {
	if len(subs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, sub := range subs {
		args, err := submissionArgs(sub)
		if err != nil {
			return err
		}
		batch.Queue(insertSubmissionPG, args...)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range subs {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// GetTeacher returns the most recently saved profile, or nil when none exists.
func (r *PostgresStore) GetTeacher(ctx context.Context) (*model.Teacher, error) {
	t := &model.Teacher{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, school, university, department, email, subject, level, academic_year
		 FROM teachers
		 ORDER BY updated_at DESC
		 LIMIT 1`,
	).Scan(&t.ID, &t.Name, &t.School, &t.University, &t.Department, &t.Email, &t.Subject, &t.Level, &t.AcademicYear)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *PostgresStore) SaveExam(ctx context.Context, exam model.Exam) error {
	questions, err := json.Marshal(exam.Questions)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO exams (id, title, description, teacher_id, questions, duration_minutes, access_code, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		exam.ID, exam.Title, exam.Description, exam.TeacherID, questions,
		exam.DurationMinutes, exam.AccessCode, exam.CreatedAt)
	return err
}

// SaveTeacher upserts the profile by ID.
func (r *PostgresStore) SaveTeacher(ctx context.Context, t model.Teacher) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO teachers (id, name, school, university, department, email, subject, level, academic_year, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name, school = EXCLUDED.school, university = EXCLUDED.university,
		   department = EXCLUDED.department, email = EXCLUDED.email, subject = EXCLUDED.subject,
		   level = EXCLUDED.level, academic_year = EXCLUDED.academic_year, updated_at = EXCLUDED.updated_at`,
		t.ID, t.Name, t.School, t.University, t.Department, t.Email, t.Subject, t.Level, t.AcademicYear, time.Now())
	return err
}

func (r *PostgresStore) Close() error {
	r.pool.Close()
	return nil
}

// ─── JSON column helpers (shared with SQLiteStore) ─────────────────────────

func submissionArgs(sub model.Submission) ([]any, error) {
	answers, err := json.Marshal(sub.Answers)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}
	var teacher []byte
	if sub.TeacherInfo != nil {
		if teacher, err = json.Marshal(sub.TeacherInfo); err != nil {
			return nil, fmt.Errorf("encode teacher snapshot: %w", err)
		}
	}
	return []any{
		sub.ID, sub.ExamID, sub.StudentName, sub.StudentID, sub.StudentGender,
		answers, sub.Score, sub.TotalPoints, sub.Timestamp, teacher,
	}, nil
}

func decodeSubmissionJSON(s *model.Submission, answers, teacher []byte) error {
	if err := json.Unmarshal(answers, &s.Answers); err != nil {
		return fmt.Errorf("decode answers of submission %s: %w", s.ID, err)
	}
	if len(teacher) > 0 && string(teacher) != "null" {
		s.TeacherInfo = &model.Teacher{}
		if err := json.Unmarshal(teacher, s.TeacherInfo); err != nil {
			return fmt.Errorf("decode teacher snapshot of submission %s: %w", s.ID, err)
		}
	}
	return nil
}
