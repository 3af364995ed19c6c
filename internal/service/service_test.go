package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/eduassess-backend/internal/attempt"
	"github.com/stemsi/eduassess-backend/internal/model"
	"github.com/stemsi/eduassess-backend/internal/repository"
)

var discard = zerolog.New(io.Discard)

// manualTicker is an attempt.Ticker driven by the test.
type manualTicker struct {
	ch chan time.Time
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               {}

// tickers hands out manualTickers and remembers them in creation order.
type tickers struct {
	mu  sync.Mutex
	all []*manualTicker
}

func (t *tickers) factory(time.Duration) attempt.Ticker {
	t.mu.Lock()
	defer t.mu.Unlock()
	mt := &manualTicker{ch: make(chan time.Time)}
	t.all = append(t.all, mt)
	return mt
}

func (t *tickers) last() *manualTicker {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.all[len(t.all)-1]
}

// fire delivers n ticks to the most recent attempt's countdown.
func (t *tickers) fire(n int) {
	mt := t.last()
	for i := 0; i < n; i++ {
		mt.ch <- time.Now()
	}
}

type fixture struct {
	store    *repository.MemoryStore
	exams    *ExamService
	feed     *FeedService
	delivery *DeliveryService
	tickers  *tickers
	exam     *model.Exam
}

func newFixture(t *testing.T, opts ...DeliveryOption) *fixture {
	t.Helper()
	ctx := context.Background()

	store := repository.NewMemoryStore()
	if err := store.SaveTeacher(ctx, model.Teacher{ID: "T1", Name: "Prof. Souloukna", University: "UPM"}); err != nil {
		t.Fatalf("SaveTeacher: %v", err)
	}

	exams := NewExamService(store, discard)
	exam, err := exams.Create(ctx, model.CreateExamRequest{
		Title:           "Géodésie",
		DurationMinutes: 1,
		Questions: []model.CreateQuestionRequest{
			{Text: "Q1", Options: []string{"a", "b", "c", "d"}, CorrectAnswerIndex: 1, Points: 1},
			{Text: "Q2", Options: []string{"a", "b", "c", "d"}, CorrectAnswerIndex: 0, Points: 2},
		},
	})
	if err != nil {
		t.Fatalf("Create exam: %v", err)
	}

	tk := &tickers{}
	feed := NewFeedService(nil, discard)
	opts = append([]DeliveryOption{WithTickerFactory(tk.factory)}, opts...)

	return &fixture{
		store:    store,
		exams:    exams,
		feed:     feed,
		delivery: NewDeliveryService(store, exams, feed, discard, opts...),
		tickers:  tk,
		exam:     exam,
	}
}

func (f *fixture) submissions(t *testing.T) []model.Submission {
	t.Helper()
	subs, err := f.store.GetSubmissions(context.Background())
	if err != nil {
		t.Fatalf("GetSubmissions: %v", err)
	}
	return subs
}
