package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduassess-backend/internal/model"
	"github.com/stemsi/eduassess-backend/internal/repository"
	"github.com/stemsi/eduassess-backend/internal/response"
)

// Domain Errors
var (
	ErrExamNotFound           = errors.New("exam not found")
	ErrTeacherProfileRequired = errors.New("teacher profile must be saved before creating exams")
	ErrAccessCodeExhausted    = errors.New("could not generate a unique access code")
)

const (
	// AccessCodeLength is the number of base-36 characters in an access code.
	AccessCodeLength   = 6
	accessCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	accessCodeAttempts = 16
)

// ExamService handles exam authoring and lookup.
type ExamService struct {
	store repository.RecordStore
	log   zerolog.Logger
	now   func() time.Time
}

// NewExamService creates a new ExamService.
func NewExamService(store repository.RecordStore, log zerolog.Logger) *ExamService {
	return &ExamService{
		store: store,
		log:   log.With().Str("component", "exam_service").Logger(),
		now:   time.Now,
	}
}

// Create stamps IDs, the author and a fresh access code on a bound request,
// then archives the exam. A saved teacher profile is required.
func (s *ExamService) Create(ctx context.Context, req model.CreateExamRequest) (*model.Exam, error) {
	teacher, err := s.store.GetTeacher(ctx)
	if err != nil {
		return nil, fmt.Errorf("get teacher: %w", err)
	}
	if teacher == nil {
		return nil, ErrTeacherProfileRequired
	}

	existing, err := s.store.GetExams(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	taken := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		taken[e.AccessCode] = struct{}{}
	}

	code, err := uniqueAccessCode(taken)
	if err != nil {
		return nil, err
	}

	exam := model.Exam{
		ID:              uuid.New().String(),
		Title:           strings.TrimSpace(req.Title),
		Description:     strings.TrimSpace(req.Description),
		TeacherID:       teacher.ID,
		DurationMinutes: req.DurationMinutes,
		AccessCode:      code,
		CreatedAt:       s.now().UTC(),
		Questions:       make([]model.Question, 0, len(req.Questions)),
	}
	for _, q := range req.Questions {
		exam.Questions = append(exam.Questions, model.Question{
			ID:                 uuid.New().String(),
			Text:               strings.TrimSpace(q.Text),
			Options:            append([]string(nil), q.Options...),
			CorrectAnswerIndex: q.CorrectAnswerIndex,
			Points:             q.Points,
		})
	}

	if err := s.store.SaveExam(ctx, exam); err != nil {
		return nil, fmt.Errorf("save exam: %w", err)
	}

	s.log.Info().
		Str("exam_id", exam.ID).
		Str("access_code", exam.AccessCode).
		Int("questions", len(exam.Questions)).
		Msg("Exam created")

	return &exam, nil
}

// List returns exam summaries, newest first, one page at a time.
func (s *ExamService) List(ctx context.Context, page, perPage int) ([]model.ExamSummary, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	exams, err := s.store.GetExams(ctx)
	if err != nil {
		return nil, nil, err
	}
	subs, err := s.store.GetSubmissions(ctx)
	if err != nil {
		return nil, nil, err
	}

	counts := make(map[string]int)
	for _, sub := range subs {
		counts[sub.ExamID]++
	}

	total := len(exams)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	summaries := make([]model.ExamSummary, 0, end-start)
	for _, e := range exams[start:end] {
		summaries = append(summaries, model.ExamSummary{
			Exam:            e,
			ShareLink:       e.ShareLink(),
			QuestionCount:   len(e.Questions),
			TotalPoints:     e.TotalPoints(),
			SubmissionCount: counts[e.ID],
		})
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return summaries, pagination, nil
}

// GetByID retrieves an exam by its ID.
func (s *ExamService) GetByID(ctx context.Context, id string) (*model.Exam, error) {
	exams, err := s.store.GetExams(ctx)
	if err != nil {
		return nil, err
	}
	for i := range exams {
		if exams[i].ID == id {
			return &exams[i], nil
		}
	}
	return nil, ErrExamNotFound
}

// Locate finds the exam a student asked for. The input must equal an exam
// ID exactly, or an access code once upper-cased. No fuzzy matching.
func (s *ExamService) Locate(ctx context.Context, code string) (*model.Exam, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrExamNotFound
	}
	upper := strings.ToUpper(code)

	exams, err := s.store.GetExams(ctx)
	if err != nil {
		return nil, err
	}
	for i := range exams {
		if exams[i].ID == code || exams[i].AccessCode == upper {
			return &exams[i], nil
		}
	}
	return nil, ErrExamNotFound
}

// GenerateAccessCode returns AccessCodeLength random upper-case base-36
// characters.
func GenerateAccessCode() (string, error) {
	base := big.NewInt(int64(len(accessCodeAlphabet)))
	var sb strings.Builder
	sb.Grow(AccessCodeLength)
	for i := 0; i < AccessCodeLength; i++ {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("generate access code: %w", err)
		}
		sb.WriteByte(accessCodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

func uniqueAccessCode(taken map[string]struct{}) (string, error) {
	for i := 0; i < accessCodeAttempts; i++ {
		code, err := GenerateAccessCode()
		if err != nil {
			return "", err
		}
		if _, dup := taken[code]; !dup {
			return code, nil
		}
	}
	return "", ErrAccessCodeExhausted
}
