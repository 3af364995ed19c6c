package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/stemsi/eduassess-backend/internal/model"
)

// MemoryStore keeps every record in process memory. It backs tests and the
// "memory" store driver.
type MemoryStore struct {
	mu          sync.RWMutex
	exams       []model.Exam
	submissions []model.Submission
	seen        map[string]struct{}
	teacher     *model.Teacher
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]struct{})}
}

// GetExams returns all exams, newest first.
func (s *MemoryStore) GetExams(_ context.Context) ([]model.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Exam, len(s.exams))
	copy(out, s.exams)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// GetSubmissions returns all submissions in archive order.
func (s *MemoryStore) GetSubmissions(_ context.Context) ([]model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Submission, len(s.submissions))
	copy(out, s.submissions)
	return out, nil
}

func (s *MemoryStore) IsIDUsedForExam(_ context.Context, studentID, examID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.submissions {
		if sub.ExamID == examID && sub.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) SaveSubmission(_ context.Context, sub model.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(sub)
	return nil
}

// SaveSubmissions appends subs, skipping IDs already archived.
func (s *MemoryStore) SaveSubmissions(_ context.Context, subs []model.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range subs {
		s.appendLocked(sub)
	}
	return nil
}

func (s *MemoryStore) appendLocked(sub model.Submission) {
	if _, ok := s.seen[sub.ID]; ok {
		return
	}
	s.seen[sub.ID] = struct{}{}
	sub.Answers = append([]int(nil), sub.Answers...)
	s.submissions = append(s.submissions, sub)
}

func (s *MemoryStore) GetTeacher(_ context.Context) (*model.Teacher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.teacher == nil {
		return nil, nil
	}
	t := *s.teacher
	return &t, nil
}

func (s *MemoryStore) SaveExam(_ context.Context, exam model.Exam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exams = append(s.exams, exam)
	return nil
}

func (s *MemoryStore) SaveTeacher(_ context.Context, teacher model.Teacher) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teacher = &teacher
	return nil
}

func (s *MemoryStore) Close() error { return nil }
