package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduassess-backend/internal/model"
	"github.com/stemsi/eduassess-backend/internal/repository"
)

// TeacherService manages the single educator profile.
type TeacherService struct {
	store repository.RecordStore
	log   zerolog.Logger
}

// NewTeacherService creates a new TeacherService.
func NewTeacherService(store repository.RecordStore, log zerolog.Logger) *TeacherService {
	return &TeacherService{
		store: store,
		log:   log.With().Str("component", "teacher_service").Logger(),
	}
}

// Get returns the profile, or nil if none has been saved yet.
func (s *TeacherService) Get(ctx context.Context) (*model.Teacher, error) {
	return s.store.GetTeacher(ctx)
}

// Save creates the profile or overwrites the existing one, keeping its ID.
// Submissions already archived keep the snapshot they were finalized with.
func (s *TeacherService) Save(ctx context.Context, req model.SaveTeacherRequest) (*model.Teacher, error) {
	current, err := s.store.GetTeacher(ctx)
	if err != nil {
		return nil, fmt.Errorf("get teacher: %w", err)
	}

	id := uuid.New().String()
	if current != nil {
		id = current.ID
	}

	t := model.Teacher{
		ID:           id,
		Name:         strings.TrimSpace(req.Name),
		School:       strings.TrimSpace(req.School),
		University:   strings.TrimSpace(req.University),
		Department:   strings.TrimSpace(req.Department),
		Email:        strings.TrimSpace(req.Email),
		Subject:      strings.TrimSpace(req.Subject),
		Level:        strings.TrimSpace(req.Level),
		AcademicYear: strings.TrimSpace(req.AcademicYear),
	}
	if err := s.store.SaveTeacher(ctx, t); err != nil {
		return nil, fmt.Errorf("save teacher: %w", err)
	}

	s.log.Info().Str("teacher_id", t.ID).Msg("Teacher profile saved")
	return &t, nil
}
