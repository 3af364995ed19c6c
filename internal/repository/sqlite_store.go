package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stemsi/eduassess-backend/internal/model"
)

// SQLiteStore persists records in a local SQLite file for single-machine
// deployments. Timestamps are stored as Unix nanoseconds.
type SQLiteStore struct {
	db *sql.DB
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS teachers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  school TEXT NOT NULL DEFAULT '',
  university TEXT NOT NULL DEFAULT '',
  department TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  subject TEXT NOT NULL DEFAULT '',
  level TEXT NOT NULL DEFAULT '',
  academic_year TEXT NOT NULL DEFAULT '',
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS exams (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  teacher_id TEXT NOT NULL DEFAULT '',
  questions TEXT NOT NULL,
  duration_minutes INTEGER NOT NULL,
  access_code TEXT NOT NULL UNIQUE,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS submissions (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  exam_id TEXT NOT NULL,
  student_name TEXT NOT NULL,
  student_id TEXT NOT NULL,
  student_gender TEXT NOT NULL DEFAULT '',
  answers TEXT NOT NULL,
  score INTEGER NOT NULL,
  total_points INTEGER NOT NULL,
  submitted_at INTEGER NOT NULL,
  teacher_info TEXT
);

CREATE INDEX IF NOT EXISTS idx_submissions_exam_student ON submissions (exam_id, student_id);
`

const insertSubmissionSQLite = `
	INSERT OR IGNORE INTO submissions
		(id, exam_id, student_name, student_id, student_gender, answers, score, total_points, submitted_at, teacher_info)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// NewSQLiteStore wraps db and creates the schema if it does not exist.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.ExecContext(ctx, schemaSQLite); err != nil {
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (r *SQLiteStore) GetExams(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.db.QueryContext(ctx,
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
		var questions string
		var created int64
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.TeacherID, &questions,
			&e.DurationMinutes, &e.AccessCode, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(questions), &e.Questions); err != nil {
			return nil, fmt.Errorf("decode questions of exam %s: %w", e.ID, err)
		}
		e.CreatedAt = time.Unix(0, created).UTC()
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

func (r *SQLiteStore) GetSubmissions(ctx context.Context) ([]model.Submission, error) {
	rows, err := r.db.QueryContext(ctx,
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
		var answers string
		var teacher sql.NullString
		var submitted int64
		if err := rows.Scan(&s.ID, &s.ExamID, &s.StudentName, &s.StudentID, &s.StudentGender,
			&answers, &s.Score, &s.TotalPoints, &submitted, &teacher); err != nil {
			return nil, err
		}
		if err := decodeSubmissionJSON(&s, []byte(answers), []byte(teacher.String)); err != nil {
			return nil, err
		}
		s.Timestamp = time.Unix(0, submitted).UTC()
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *SQLiteStore) IsIDUsedForExam(ctx context.Context, studentID, examID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM submissions WHERE exam_id = ? AND student_id = ? LIMIT 1`,
		examID, studentID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *SQLiteStore) SaveSubmission(ctx context.Context, sub model.Submission) error {
	args, err := sqliteSubmissionArgs(sub)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, insertSubmissionSQLite, args...)
	return err
}

// SaveSubmissions appends subs inside one transaction.
func (r *SQLiteStore) SaveSubmissions(ctx context.Context, subs []model.Submission) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSubmissionSQLite)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, sub := range subs {
		args, err := sqliteSubmissionArgs(sub)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteStore) GetTeacher(ctx context.Context) (*model.Teacher, error) {
	t := &model.Teacher{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, school, university, department, email, subject, level, academic_year
		 FROM teachers
		 ORDER BY updated_at DESC
		 LIMIT 1`,
	).Scan(&t.ID, &t.Name, &t.School, &t.University, &t.Department, &t.Email, &t.Subject, &t.Level, &t.AcademicYear)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *SQLiteStore) SaveExam(ctx context.Context, exam model.Exam) error {
	questions, err := json.Marshal(exam.Questions)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO exams (id, title, description, teacher_id, questions, duration_minutes, access_code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		exam.ID, exam.Title, exam.Description, exam.TeacherID, string(questions),
		exam.DurationMinutes, exam.AccessCode, exam.CreatedAt.UnixNano())
	return err
}

func (r *SQLiteStore) SaveTeacher(ctx context.Context, t model.Teacher) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO teachers (id, name, school, university, department, email, subject, level, academic_year, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name, school = excluded.school, university = excluded.university,
		   department = excluded.department, email = excluded.email, subject = excluded.subject,
		   level = excluded.level, academic_year = excluded.academic_year, updated_at = excluded.updated_at`,
		t.ID, t.Name, t.School, t.University, t.Department, t.Email, t.Subject, t.Level, t.AcademicYear, time.Now().UnixNano())
	return err
}

func (r *SQLiteStore) Close() error {
	return r.db.Close()
}

// sqliteSubmissionArgs stores JSON columns as TEXT and the timestamp as
// Unix nanoseconds.
func sqliteSubmissionArgs(sub model.Submission) ([]any, error) {
	args, err := submissionArgs(sub)
	if err != nil {
		return nil, err
	}
	args[5] = string(args[5].([]byte))
	args[8] = sub.Timestamp.UnixNano()
	if teacher := args[9].([]byte); teacher != nil {
		args[9] = string(teacher)
	} else {
		args[9] = nil
	}
	return args, nil
}
