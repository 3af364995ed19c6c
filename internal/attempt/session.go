// Package attempt implements the timed exam attempt: a two-state machine
// (Active → Finalized) owning the countdown, the answer vector and the
// write-once finalize guard.
package attempt

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/eduassess-backend/internal/model"
	"github.com/stemsi/eduassess-backend/internal/scoring"
)

// TickInterval is the countdown cadence.
const TickInterval = time.Second

// State enumerates attempt states.
type State string

const (
	StateActive    State = "ACTIVE"
	StateFinalized State = "FINALIZED"
)

// Reason records which path finalized an attempt.
type Reason string

const (
	ReasonTimeout Reason = "timeout"
	ReasonManual  Reason = "manual"
)

var (
	ErrFinalized          = errors.New("attempt already finalized")
	ErrQuestionOutOfRange = errors.New("question index out of range")
	ErrOptionOutOfRange   = errors.New("option index out of range")
)

// Sink receives the single Submission an attempt emits and returns the
// record as it was archived (e.g. with the teacher snapshot attached).
type Sink func(sub model.Submission, reason Reason) model.Submission

// Result is the terminal outcome of an attempt.
type Result struct {
	Submission  model.Submission `json:"submission"`
	Reason      Reason           `json:"reason"`
	FinalizedAt time.Time        `json:"finalized_at"`
}

// Snapshot is a point-in-time copy of an attempt for transport.
type Snapshot struct {
	ID               string                `json:"attempt_id"`
	ExamID           string                `json:"exam_id"`
	Student          model.StudentIdentity `json:"student"`
	Answers          []int                 `json:"answers"`
	RemainingSeconds int                   `json:"remaining_seconds"`
	State            State                 `json:"state"`
	Result           *Result               `json:"result,omitempty"`
}

// Config binds a new attempt to its exam and student.
type Config struct {
	ID      string
	Exam    model.Exam
	Student model.StudentIdentity
	Sink    Sink

	// Optional; defaults are time.Now, uuid and NewRealTicker.
	Now       func() time.Time
	NewID     func() string
	NewTicker TickerFactory
}

// Session is one student's single pass through one exam.
//
// All transitions serialize on mu. The finalize guard is read and written in
// the same critical section as the countdown decrement, so a manual submit
// racing the final tick can never produce two submissions.
type Session struct {
	id        string
	exam      model.Exam
	student   model.StudentIdentity
	sink      Sink
	now       func() time.Time
	newID     func() string
	newTicker TickerFactory
	startedAt time.Time

	mu        sync.Mutex
	answers   []int
	remaining int
	state     State
	started   bool
	ticker    Ticker
	stop      chan struct{}
	result    *Result

	done chan struct{}
}

// New creates an Active attempt with every slot unanswered.
func New(cfg Config) *Session {
	s := &Session{
		id:        cfg.ID,
		exam:      cfg.Exam,
		student:   cfg.Student,
		sink:      cfg.Sink,
		now:       cfg.Now,
		newID:     cfg.NewID,
		newTicker: cfg.NewTicker,
		remaining: cfg.Exam.DurationSeconds(),
		state:     StateActive,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.New().String() }
	}
	if s.newTicker == nil {
		s.newTicker = NewRealTicker
	}
	if s.id == "" {
		s.id = s.newID()
	}
	if s.remaining < 0 {
		s.remaining = 0
	}
	s.startedAt = s.now()

	s.answers = make([]int, len(cfg.Exam.Questions))
	for i := range s.answers {
		s.answers[i] = model.Unanswered
	}
	return s
}

func (s *Session) ID() string                     { return s.id }
func (s *Session) Exam() model.Exam               { return s.exam }
func (s *Session) Student() model.StudentIdentity { return s.student }
func (s *Session) StartedAt() time.Time           { return s.startedAt }

// Done is closed once the attempt has finalized and its sink returned.
func (s *Session) Done() <-chan struct{} { return s.done }

// Start launches the countdown goroutine. Calling it again, or after the
// attempt finalized, does nothing.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.state != StateActive {
		return
	}
	s.started = true
	s.ticker = s.newTicker(TickInterval)
	go s.run(s.ticker)
}

func (s *Session) run(t Ticker) {
	for {
		select {
		case <-s.stop:
			return
		case <-t.C():
			s.Tick()
		}
	}
}

// SelectAnswer overwrites the slot for questionIndex.
func (s *Session) SelectAnswer(questionIndex, optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return ErrFinalized
	}
	if questionIndex < 0 || questionIndex >= len(s.answers) {
		return ErrQuestionOutOfRange
	}
	if optionIndex < 0 || optionIndex >= len(s.exam.Questions[questionIndex].Options) {
		return ErrOptionOutOfRange
	}
	s.answers[questionIndex] = optionIndex
	return nil
}

// Tick advances the countdown by one second. The tick that reaches zero
// finalizes the attempt before returning.
func (s *Session) Tick() {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return
	}
	if s.remaining > 0 {
		s.remaining--
	}
	var sub *model.Submission
	if s.remaining == 0 {
		sub = s.finalizeLocked()
	}
	s.mu.Unlock()

	if sub != nil {
		s.emit(*sub, ReasonTimeout)
	}
}

// Finalize freezes and grades the attempt. Only the first caller, whether the
// countdown or a manual submit, wins and gets true; later callers are no-ops.
func (s *Session) Finalize(reason Reason) bool {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return false
	}
	sub := s.finalizeLocked()
	s.mu.Unlock()

	s.emit(*sub, reason)
	return true
}

// finalizeLocked flips the guard, stops the clock and builds the submission.
// Caller holds mu.
func (s *Session) finalizeLocked() *model.Submission {
	s.state = StateFinalized
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stop)

	answers := append([]int(nil), s.answers...)
	score, total := scoring.Score(s.exam.Questions, answers)

	return &model.Submission{
		ID:            s.newID(),
		ExamID:        s.exam.ID,
		StudentName:   s.student.Name,
		StudentID:     s.student.ID,
		StudentGender: s.student.Gender,
		Answers:       answers,
		Score:         score,
		TotalPoints:   total,
		Timestamp:     s.now(),
	}
}

func (s *Session) emit(sub model.Submission, reason Reason) {
	archived := sub
	if s.sink != nil {
		archived = s.sink(sub, reason)
	}

	s.mu.Lock()
	s.result = &Result{Submission: archived, Reason: reason, FinalizedAt: s.now()}
	s.mu.Unlock()

	close(s.done)
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RemainingSeconds returns the countdown value.
func (s *Session) RemainingSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Result returns the outcome, or nil while the attempt is active or its
// submission is still being archived.
func (s *Session) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	r := *s.result
	return &r
}

// Snapshot copies the attempt's observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:               s.id,
		ExamID:           s.exam.ID,
		Student:          s.student,
		Answers:          append([]int(nil), s.answers...),
		RemainingSeconds: s.remaining,
		State:            s.state,
	}
	if s.result != nil {
		r := *s.result
		snap.Result = &r
	}
	return snap
}
