package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/eduassess-backend/internal/attempt"
	"github.com/stemsi/eduassess-backend/internal/metrics"
	"github.com/stemsi/eduassess-backend/internal/model"
	"github.com/stemsi/eduassess-backend/internal/repository"
	"github.com/stemsi/eduassess-backend/internal/scoring"
)

// Delivery errors.
var (
	ErrInvalidRegistration = errors.New("student name and id are required")
	ErrDuplicateAttempt    = errors.New("student id already submitted this exam")
	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrAttemptFinalized    = errors.New("attempt already finalized")
	ErrInvalidAnswer       = errors.New("answer out of range")
)

// sinkTimeout bounds the store calls made while archiving a submission.
const sinkTimeout = 10 * time.Second

// DeliveryOption customizes a DeliveryService.
type DeliveryOption func(*DeliveryService)

// WithTickerFactory replaces the one-second wall clock ticker.
func WithTickerFactory(f attempt.TickerFactory) DeliveryOption {
	return func(s *DeliveryService) { s.newTicker = f }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) DeliveryOption {
	return func(s *DeliveryService) { s.now = now }
}

// DeliveryService is the exam delivery controller. It locates exams,
// applies the duplicate-attempt guard, owns the registry of live attempts
// and archives each finalized attempt's submission exactly once.
type DeliveryService struct {
	store     repository.RecordStore
	exams     *ExamService
	feed      *FeedService
	log       zerolog.Logger
	newTicker attempt.TickerFactory
	now       func() time.Time

	mu       sync.RWMutex
	attempts map[string]*attempt.Session
}

// NewDeliveryService creates a new DeliveryService. feed may be nil.
func NewDeliveryService(
	store repository.RecordStore,
	exams *ExamService,
	feed *FeedService,
	log zerolog.Logger,
	opts ...DeliveryOption,
) *DeliveryService {
	s := &DeliveryService{
		store:     store,
		exams:     exams,
		feed:      feed,
		log:       log.With().Str("component", "delivery_service").Logger(),
		newTicker: attempt.NewRealTicker,
		now:       time.Now,
		attempts:  make(map[string]*attempt.Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LocateExam resolves an exam ID or access code.
func (s *DeliveryService) LocateExam(ctx context.Context, code string) (*model.Exam, error) {
	return s.exams.Locate(ctx, code)
}

// StartAttempt registers a student against an exam and starts the clock.
//
// The duplicate guard reads the archive only; two starts for the same
// student racing each other can both pass.
func (s *DeliveryService) StartAttempt(ctx context.Context, code string, student model.StudentIdentity) (*attempt.Session, error) {
	student = student.Normalize()
	if !student.Complete() {
		return nil, ErrInvalidRegistration
	}

	exam, err := s.exams.Locate(ctx, code)
	if err != nil {
		return nil, err
	}

	used, err := s.store.IsIDUsedForExam(ctx, student.ID, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("check duplicate attempt: %w", err)
	}
	if used {
		metrics.DuplicateRefusals.Inc()
		s.log.Info().
			Str("exam_id", exam.ID).
			Str("student_id", student.ID).
			Msg("Duplicate attempt refused")
		return nil, ErrDuplicateAttempt
	}

	sess := attempt.New(attempt.Config{
		Exam:      *exam,
		Student:   student,
		Sink:      s.archive,
		Now:       s.now,
		NewTicker: s.newTicker,
	})

	s.mu.Lock()
	s.attempts[sess.ID()] = sess
	s.mu.Unlock()

	metrics.AttemptsStarted.Inc()
	metrics.ActiveAttempts.Inc()
	sess.Start()

	s.log.Info().
		Str("attempt_id", sess.ID()).
		Str("exam_id", exam.ID).
		Str("student_id", student.ID).
		Int("remaining_seconds", sess.RemainingSeconds()).
		Msg("Attempt started")

	return sess, nil
}

// Attempt returns the live or recently finished attempt with id.
func (s *DeliveryService) Attempt(id string) (*attempt.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.attempts[id]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	return sess, nil
}

// Snapshot returns a copy of the attempt's current state.
func (s *DeliveryService) Snapshot(id string) (attempt.Snapshot, error) {
	sess, err := s.Attempt(id)
	if err != nil {
		return attempt.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// SelectAnswer records optionIndex for questionIndex.
func (s *DeliveryService) SelectAnswer(id string, questionIndex, optionIndex int) error {
	sess, err := s.Attempt(id)
	if err != nil {
		return err
	}

	switch err := sess.SelectAnswer(questionIndex, optionIndex); {
	case err == nil:
		return nil
	case errors.Is(err, attempt.ErrFinalized):
		return ErrAttemptFinalized
	case errors.Is(err, attempt.ErrQuestionOutOfRange), errors.Is(err, attempt.ErrOptionOutOfRange):
		return fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
	default:
		return err
	}
}

// Submit finalizes the attempt manually and waits for its result. Submitting
// an attempt that already finalized returns the existing result.
func (s *DeliveryService) Submit(ctx context.Context, id string) (*attempt.Result, error) {
	sess, err := s.Attempt(id)
	if err != nil {
		return nil, err
	}
	sess.Finalize(attempt.ReasonManual)
	return s.wait(ctx, sess)
}

// Wait blocks until the attempt finalizes, by timeout or manual submit.
func (s *DeliveryService) Wait(ctx context.Context, id string) (*attempt.Result, error) {
	sess, err := s.Attempt(id)
	if err != nil {
		return nil, err
	}
	return s.wait(ctx, sess)
}

func (s *DeliveryService) wait(ctx context.Context, sess *attempt.Session) (*attempt.Result, error) {
	select {
	case <-sess.Done():
		return sess.Result(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ActiveCount reports attempts still counting down.
func (s *DeliveryService) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, sess := range s.attempts {
		if sess.State() == attempt.StateActive {
			n++
		}
	}
	return n
}

// FinalizeAll submits every active attempt with reason manual and waits for
// their submissions to be archived. Used on shutdown.
func (s *DeliveryService) FinalizeAll(ctx context.Context) int {
	s.mu.RLock()
	live := make([]*attempt.Session, 0, len(s.attempts))
	for _, sess := range s.attempts {
		live = append(live, sess)
	}
	s.mu.RUnlock()

	n := 0
	for _, sess := range live {
		if sess.Finalize(attempt.ReasonManual) {
			n++
		}
	}
	for _, sess := range live {
		select {
		case <-sess.Done():
		case <-ctx.Done():
			s.log.Warn().Err(ctx.Err()).Msg("Gave up waiting for attempts to archive")
			return n
		}
	}

	if n > 0 {
		s.log.Info().Int("finalized", n).Msg("Active attempts finalized on shutdown")
	}
	return n
}

// EvictFinished drops finalized attempts whose result is older than
// retention. Their submissions are already in the record store.
func (s *DeliveryService) EvictFinished(retention time.Duration) int {
	cutoff := s.now().Add(-retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.attempts {
		res := sess.Result()
		if res == nil || res.FinalizedAt.After(cutoff) {
			continue
		}
		delete(s.attempts, id)
		n++
	}
	return n
}

// archive is the attempt Sink. It runs once per attempt, outside the
// session lock, and attaches the teacher profile as it is at finalize time.
func (s *DeliveryService) archive(sub model.Submission, reason attempt.Reason) model.Submission {
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()

	metrics.ActiveAttempts.Dec()
	metrics.AttemptsFinalized.WithLabelValues(string(reason)).Inc()
	percent := scoring.Percentage(sub.Score, sub.TotalPoints)
	metrics.ScorePercent.Observe(percent)

	teacher, err := s.store.GetTeacher(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("submission_id", sub.ID).Msg("Teacher snapshot unavailable")
	}
	sub.TeacherInfo = teacher

	if err := s.store.SaveSubmission(ctx, sub); err != nil {
		metrics.ArchiveFailures.Inc()
		s.log.Error().
			Err(err).
			Str("submission_id", sub.ID).
			Str("exam_id", sub.ExamID).
			Str("student_id", sub.StudentID).
			Msg("Failed to archive submission")
	}

	if s.feed != nil {
		s.feed.Publish(ctx, sub.ExamID, FeedEvent{
			Type:       FeedEventSubmission,
			Reason:     string(reason),
			Percent:    percent,
			Submission: sub,
			SentAt:     s.now().UTC(),
		})
	}

	s.log.Info().
		Str("submission_id", sub.ID).
		Str("exam_id", sub.ExamID).
		Str("student_id", sub.StudentID).
		Str("reason", string(reason)).
		Int("score", sub.Score).
		Int("total", sub.TotalPoints).
		Msg("Attempt finalized")

	return sub
}
