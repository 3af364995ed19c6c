package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stemsi/eduassess-backend/internal/model"
	"github.com/stemsi/eduassess-backend/internal/repository"
)

var accessCodePattern = regexp.MustCompile(`^[0-9A-Z]{6}$`)

func TestGenerateAccessCode(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		code, err := GenerateAccessCode()
		if err != nil {
			t.Fatalf("GenerateAccessCode: %v", err)
		}
		if !accessCodePattern.MatchString(code) {
			t.Fatalf("code %q does not match %s", code, accessCodePattern)
		}
		seen[code] = struct{}{}
	}
	if len(seen) < 190 {
		t.Fatalf("only %d distinct codes out of 200", len(seen))
	}
}

func TestUniqueAccessCodeSkipsTaken(t *testing.T) {
	code, err := uniqueAccessCode(map[string]struct{}{})
	if err != nil || !accessCodePattern.MatchString(code) {
		t.Fatalf("uniqueAccessCode = %q, %v", code, err)
	}
	again, err := uniqueAccessCode(map[string]struct{}{code: {}})
	if err != nil || again == code {
		t.Fatalf("uniqueAccessCode returned taken code %q (%v)", again, err)
	}
}

func TestCreateRequiresTeacherProfile(t *testing.T) {
	svc := NewExamService(repository.NewMemoryStore(), discard)
	_, err := svc.Create(context.Background(), model.CreateExamRequest{
		Title:           "Algèbre",
		DurationMinutes: 10,
		Questions:       []model.CreateQuestionRequest{{Text: "Q", Options: []string{"a", "b", "c", "d"}, Points: 1}},
	})
	if !errors.Is(err, ErrTeacherProfileRequired) {
		t.Fatalf("err = %v, want ErrTeacherProfileRequired", err)
	}
}

func TestCreateStampsExam(t *testing.T) {
	f := newFixture(t)
	e := f.exam

	if e.ID == "" || e.TeacherID != "T1" || e.CreatedAt.IsZero() {
		t.Fatalf("exam = %+v", e)
	}
	if !accessCodePattern.MatchString(e.AccessCode) {
		t.Fatalf("access code %q", e.AccessCode)
	}
	if len(e.Questions) != 2 || e.Questions[0].ID == "" || e.Questions[0].ID == e.Questions[1].ID {
		t.Fatalf("questions not stamped: %+v", e.Questions)
	}
	if e.TotalPoints() != 3 || e.DurationSeconds() != 60 {
		t.Fatalf("total=%d duration=%d", e.TotalPoints(), e.DurationSeconds())
	}
	if e.ShareLink() != "#/exam/"+e.AccessCode {
		t.Fatalf("share link %q", e.ShareLink())
	}
}

func TestLocate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input string
		found bool
	}{
		{"exact id", f.exam.ID, true},
		{"access code", f.exam.AccessCode, true},
		{"lower-case access code", strings.ToLower(f.exam.AccessCode), true},
		{"upper-cased id", strings.ToUpper(f.exam.ID), false},
		{"prefix of code", f.exam.AccessCode[:3], false},
		{"blank", "   ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exam, err := f.exams.Locate(ctx, tt.input)
			if tt.found {
				if err != nil || exam.ID != f.exam.ID {
					t.Fatalf("Locate(%q) = %v, %v", tt.input, exam, err)
				}
				return
			}
			if !errors.Is(err, ErrExamNotFound) {
				t.Fatalf("Locate(%q) err = %v, want ErrExamNotFound", tt.input, err)
			}
		})
	}
}

func TestListPaginatesWithSubmissionCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.exams.Create(ctx, model.CreateExamRequest{
			Title:           "Extra",
			DurationMinutes: 5,
			Questions:       []model.CreateQuestionRequest{{Text: "Q", Options: []string{"a", "b", "c", "d"}, Points: 1}},
		}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	sess, _ := f.delivery.StartAttempt(ctx, f.exam.AccessCode, ada)
	_, _ = f.delivery.Submit(ctx, sess.ID())

	all, page, err := f.exams.List(ctx, 1, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.TotalItems != 3 || page.TotalPages != 1 || len(all) != 3 {
		t.Fatalf("pagination = %+v, items = %d", page, len(all))
	}
	for _, s := range all {
		want := 0
		if s.ID == f.exam.ID {
			want = 1
		}
		if s.SubmissionCount != want {
			t.Fatalf("exam %s submission count = %d, want %d", s.ID, s.SubmissionCount, want)
		}
	}

	second, page, _ := f.exams.List(ctx, 2, 2)
	if len(second) != 1 || page.TotalPages != 2 {
		t.Fatalf("page 2 = %d items, pagination %+v", len(second), page)
	}
	beyond, _, _ := f.exams.List(ctx, 9, 2)
	if len(beyond) != 0 {
		t.Fatalf("page beyond end returned %d items", len(beyond))
	}
}

func TestGetByID(t *testing.T) {
	f := newFixture(t)
	if _, err := f.exams.GetByID(context.Background(), "nope"); !errors.Is(err, ErrExamNotFound) {
		t.Fatalf("err = %v", err)
	}
	got, err := f.exams.GetByID(context.Background(), f.exam.ID)
	if err != nil || got.AccessCode != f.exam.AccessCode {
		t.Fatalf("GetByID = %+v, %v", got, err)
	}
}
