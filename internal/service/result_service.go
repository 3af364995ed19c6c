package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/eduassess-backend/internal/export"
	"github.com/stemsi/eduassess-backend/internal/model"
	"github.com/stemsi/eduassess-backend/internal/repository"
	"github.com/stemsi/eduassess-backend/internal/scoring"
)

// ResultService answers read-only questions about the submission archive.
type ResultService struct {
	store repository.RecordStore
	exams *ExamService
	log   zerolog.Logger
	now   func() time.Time
}

// NewResultService creates a new ResultService.
func NewResultService(store repository.RecordStore, exams *ExamService, log zerolog.Logger) *ResultService {
	return &ResultService{
		store: store,
		exams: exams,
		log:   log.With().Str("component", "result_service").Logger(),
		now:   time.Now,
	}
}

// ListSubmissions returns an exam's submissions, oldest first.
func (s *ResultService) ListSubmissions(ctx context.Context, examID string) ([]model.Submission, error) {
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		return nil, err
	}

	all, err := s.store.GetSubmissions(ctx)
	if err != nil {
		return nil, err
	}

	subs := make([]model.Submission, 0)
	for _, sub := range all {
		if sub.ExamID == examID {
			subs = append(subs, sub)
		}
	}
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].Timestamp.Before(subs[j].Timestamp) })
	return subs, nil
}

// Dashboard aggregates every exam and submission. The average is the mean
// of per-submission percentages, so exams of different sizes weigh equally
// per student.
func (s *ResultService) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	exams, err := s.store.GetExams(ctx)
	if err != nil {
		return nil, err
	}
	subs, err := s.store.GetSubmissions(ctx)
	if err != nil {
		return nil, err
	}

	students := make(map[string]struct{})
	var sum float64
	for _, sub := range subs {
		students[sub.StudentID] = struct{}{}
		sum += scoring.Percentage(sub.Score, sub.TotalPoints)
	}

	d := &model.Dashboard{
		TotalExams:       len(exams),
		TotalStudents:    len(students),
		TotalSubmissions: len(subs),
	}
	if len(subs) > 0 {
		d.AveragePercent = sum / float64(len(subs))
	}
	return d, nil
}

// Export renders an exam's grade sheet. It never writes to the store.
func (s *ResultService) Export(ctx context.Context, examID string, format export.Format) (*export.File, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	subs, err := s.ListSubmissions(ctx, examID)
	if err != nil {
		return nil, err
	}
	teacher, err := s.store.GetTeacher(ctx)
	if err != nil {
		return nil, fmt.Errorf("get teacher: %w", err)
	}

	file, err := export.Render(format, export.NewReport(*exam, teacher, subs, s.now()))
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("exam_id", examID).
		Str("format", string(format)).
		Int("rows", len(subs)).
		Int("bytes", len(file.Body)).
		Msg("Results exported")

	return file, nil
}
