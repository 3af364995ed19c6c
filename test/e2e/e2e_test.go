//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stemsi/eduassess-backend/internal/model"
)

const (
	defaultBaseURL = "http://localhost:8080/api/v1"
	studentName    = "E2E Student"
)

var (
	baseURL      string
	accessPhrase string
	teacherToken string
	examID       string
	accessCode   string
	attemptID    string
	studentID    string
)

func TestMain(m *testing.M) {
	// Load .env if present (ignore error)
	_ = godotenv.Load("../../.env")

	baseURL = os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	accessPhrase = os.Getenv("TEACHER_ACCESS_PHRASE")
	if accessPhrase == "" {
		fmt.Println("TEACHER_ACCESS_PHRASE must be set for e2e tests")
		os.Exit(1)
	}
	// exams are append-only; a fresh student ID per run keeps the duplicate
	// guard out of the way on re-runs
	studentID = fmt.Sprintf("e2e-%d", time.Now().UnixNano())

	os.Exit(m.Run())
}

func TestE2EFlow(t *testing.T) {
	// Step 1: Login as Teacher
	t.Run("TeacherLogin", func(t *testing.T) {
		resp, err := post("/auth/teacher/login", model.TeacherLoginRequest{AccessPhrase: accessPhrase}, "")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}

		var body struct {
			Data model.TeacherLoginResponse `json:"data"`
		}
		decodeJSON(t, resp, &body)
		teacherToken = body.Data.Token
		if teacherToken == "" {
			t.Fatal("token missing")
		}
	})

	// Step 2: Save Profile
	t.Run("SaveProfile", func(t *testing.T) {
		resp, err := put("/teacher/profile", model.SaveTeacherRequest{
			Name:       "E2E Teacher",
			University: "Université Polytechnique de Mongo",
			Department: "Géomatique",
		}, teacherToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
	})

	// Step 3: Create Exam
	t.Run("CreateExam", func(t *testing.T) {
		resp, err := post("/teacher/exams", model.CreateExamRequest{
			Title:           "E2E Exam",
			DurationMinutes: 5,
			Questions: []model.CreateQuestionRequest{
				{Text: "2+2", Options: []string{"3", "4", "5", "6"}, CorrectAnswerIndex: 1, Points: 1},
				{Text: "3*3", Options: []string{"9", "6", "3", "0"}, CorrectAnswerIndex: 0, Points: 2},
			},
		}, teacherToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}

		var body struct {
			Data struct {
				Exam model.Exam `json:"exam"`
			} `json:"data"`
		}
		decodeJSON(t, resp, &body)
		examID = body.Data.Exam.ID
		accessCode = body.Data.Exam.AccessCode
		if examID == "" || len(accessCode) != 6 {
			t.Fatalf("exam = %+v", body.Data.Exam)
		}
	})

	// Step 4: Student Starts Attempt
	t.Run("StartAttempt", func(t *testing.T) {
		resp, err := post("/student/exams/"+accessCode+"/attempts", model.StartAttemptRequest{
			Name:      studentName,
			StudentID: studentID,
		}, "")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}

		var body struct {
			Data struct {
				Attempt struct {
					ID string `json:"attempt_id"`
				} `json:"attempt"`
			} `json:"data"`
		}
		decodeJSON(t, resp, &body)
		attemptID = body.Data.Attempt.ID
		if attemptID == "" {
			t.Fatal("attempt id missing")
		}
	})

	// Step 5: Answer and Submit
	t.Run("AnswerAndSubmit", func(t *testing.T) {
		for q, o := range []int{1, 2} {
			q, o := q, o
			resp, err := put("/student/attempts/"+attemptID+"/answers", model.SelectAnswerRequest{
				QuestionIndex: &q,
				OptionIndex:   &o,
			}, "")
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("select status %d: %s", resp.StatusCode, readBody(resp))
			}
			resp.Body.Close()
		}

		resp, err := post("/student/attempts/"+attemptID+"/submit", nil, "")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}

		var body struct {
			Data struct {
				Result struct {
					Submission model.Submission `json:"submission"`
				} `json:"result"`
			} `json:"data"`
		}
		decodeJSON(t, resp, &body)
		if s := body.Data.Result.Submission; s.Score != 1 || s.TotalPoints != 3 {
			t.Fatalf("score %d/%d, want 1/3", s.Score, s.TotalPoints)
		}
	})

	// Step 6: Duplicate Attempt (Expect 409)
	t.Run("DuplicateAttempt", func(t *testing.T) {
		resp, err := post("/student/exams/"+accessCode+"/attempts", model.StartAttemptRequest{
			Name:      studentName,
			StudentID: studentID,
		}, "")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusConflict {
			t.Fatalf("expected 409, got %d: %s", resp.StatusCode, readBody(resp))
		}
	})

	// Step 7: Results and Export
	t.Run("ResultsAndExport", func(t *testing.T) {
		// the archive worker may still be draining the queue; the store
		// merges queued submissions into reads
		resp, err := get("/teacher/exams/"+examID+"/submissions", teacherToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		var body struct {
			Data struct {
				Submissions []model.Submission `json:"submissions"`
			} `json:"data"`
		}
		decodeJSON(t, resp, &body)
		if len(body.Data.Submissions) != 1 {
			t.Fatalf("submissions = %d, want 1", len(body.Data.Submissions))
		}

		for _, format := range []string{"pdf", "xlsx", "doc"} {
			exp, err := get("/teacher/exams/"+examID+"/export?format="+format, teacherToken)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if exp.StatusCode != http.StatusOK {
				t.Fatalf("%s export status %d: %s", format, exp.StatusCode, readBody(exp))
			}
			exp.Body.Close()
		}
	})
}

// Helpers

func send(method, path string, body interface{}, token string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{Timeout: 20 * time.Second}
	return client.Do(req)
}

func post(path string, body interface{}, token string) (*http.Response, error) {
	return send(http.MethodPost, path, body, token)
}

func put(path string, body interface{}, token string) (*http.Response, error) {
	return send(http.MethodPut, path, body, token)
}

func get(path string, token string) (*http.Response, error) {
	return send(http.MethodGet, path, nil, token)
}

func readBody(resp *http.Response) string {
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("json decode: %v", err)
	}
}
