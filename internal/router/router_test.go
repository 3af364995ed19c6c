package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduassess-backend/internal/config"
	"github.com/stemsi/eduassess-backend/internal/handler"
	"github.com/stemsi/eduassess-backend/internal/metrics"
	"github.com/stemsi/eduassess-backend/internal/middleware"
	"github.com/stemsi/eduassess-backend/internal/repository"
	"github.com/stemsi/eduassess-backend/internal/service"
	"github.com/stemsi/eduassess-backend/internal/validator"
	ws "github.com/stemsi/eduassess-backend/internal/websocket"
)

const accessPhrase = "correct horse battery staple"

type testServer struct {
	*httptest.Server
	delivery *service.DeliveryService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validator.Setup()
	metrics.Init()

	log := zerolog.New(io.Discard)
	cfg := &config.Config{
		GinMode:             gin.TestMode,
		JWTSecret:           "router-test",
		JWTExpiry:           time.Hour,
		BcryptCost:          4,
		TeacherAccessPhrase: accessPhrase,
	}

	store := repository.NewMemoryStore()
	authService := service.NewAuthService(cfg)
	teacherService := service.NewTeacherService(store, log)
	examService := service.NewExamService(store, log)
	feed := service.NewFeedService(nil, log)
	delivery := service.NewDeliveryService(store, examService, feed, log)
	results := service.NewResultService(store, examService, log)

	handlers := &Handlers{
		Auth:          handler.NewAuthHandler(authService, teacherService, log),
		Teacher:       handler.NewTeacherHandler(teacherService, log),
		Exam:          handler.NewExamHandler(examService, log),
		StudentPortal: handler.NewStudentPortalHandler(delivery, log),
		WS:            handler.NewWSHandler(delivery, log, nil),
		Result:        handler.NewResultHandler(results, log),
		Feed:          handler.NewFeedHandler(feed, examService, results, log),
		System:        handler.NewSystemHandler(nil, delivery, log),
	}
	limiters := Limiters{
		Auth:    middleware.NewRateLimiter(1000, time.Minute),
		Student: middleware.NewRateLimiter(1000, time.Minute),
	}
	t.Cleanup(func() {
		limiters.Auth.Close()
		limiters.Student.Close()
	})

	srv := httptest.NewServer(SetupRouter(authService, handlers, limiters, cfg))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, delivery: delivery}
}

// envelope mirrors response.Response with a typed data field.
type envelope[T any] struct {
	Data  T `json:"data"`
	Error *struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	} `json:"error"`
	Metadata struct {
		RequestID string `json:"request_id"`
		ExamID    string `json:"exam_id"`
		AttemptID string `json:"attempt_id"`
	} `json:"metadata"`
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.URL+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response, wantStatus int) envelope[T] {
	t.Helper()
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		t.Fatalf("status %d, want %d: %s", resp.StatusCode, wantStatus, raw)
	}
	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return env
}

func errorCode[T any](env envelope[T]) string {
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}

type examData struct {
	Exam struct {
		ID         string `json:"id"`
		AccessCode string `json:"access_code"`
	} `json:"exam"`
	ShareLink string `json:"share_link"`
}

type attemptData struct {
	Attempt struct {
		ID               string `json:"attempt_id"`
		Answers          []int  `json:"answers"`
		RemainingSeconds int    `json:"remaining_seconds"`
		State            string `json:"state"`
	} `json:"attempt"`
	Exam struct {
		Questions []map[string]interface{} `json:"questions"`
	} `json:"exam"`
}

type resultData struct {
	Result struct {
		Reason     string `json:"reason"`
		Submission struct {
			Score       int `json:"score"`
			TotalPoints int `json:"total_points"`
			TeacherInfo *struct {
				Name string `json:"name"`
			} `json:"teacher_info"`
		} `json:"submission"`
	} `json:"result"`
}

// login and author an exam: [1pt correct=1, 2pt correct=0], 10 minutes.
func setupExam(t *testing.T, s *testServer) (token string, exam examData) {
	t.Helper()

	bad := decode[struct{}](t, s.do(t, http.MethodPost, "/api/v1/auth/teacher/login",
		map[string]string{"access_phrase": "nope"}, ""), http.StatusUnauthorized)
	if errorCode(bad) != "INVALID_ACCESS_PHRASE" {
		t.Fatalf("bad login code = %q", errorCode(bad))
	}

	login := decode[struct {
		Token string `json:"token"`
	}](t, s.do(t, http.MethodPost, "/api/v1/auth/teacher/login",
		map[string]string{"access_phrase": accessPhrase}, ""), http.StatusOK)
	token = login.Data.Token
	if token == "" {
		t.Fatal("no token")
	}

	examBody := map[string]interface{}{
		"title":            "Géodésie",
		"duration_minutes": 10,
		"questions": []map[string]interface{}{
			{"text": "Q1", "options": []string{"a", "b", "c", "d"}, "correct_answer_index": 1, "points": 1},
			{"text": "Q2", "options": []string{"a", "b", "c", "d"}, "correct_answer_index": 0, "points": 2},
		},
	}

	noProfile := decode[struct{}](t, s.do(t, http.MethodPost, "/api/v1/teacher/exams", examBody, token), http.StatusConflict)
	if errorCode(noProfile) != "TEACHER_PROFILE_REQUIRED" {
		t.Fatalf("create without profile code = %q", errorCode(noProfile))
	}

	decode[struct{}](t, s.do(t, http.MethodPut, "/api/v1/teacher/profile",
		map[string]string{"name": "Prof. Souloukna", "university": "UPM"}, token), http.StatusOK)

	created := decode[examData](t, s.do(t, http.MethodPost, "/api/v1/teacher/exams", examBody, token), http.StatusCreated)
	if created.Data.ShareLink != "#/exam/"+created.Data.Exam.AccessCode {
		t.Fatalf("share link %q", created.Data.ShareLink)
	}
	return token, created.Data
}

func TestTeacherRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	missing := decode[struct{}](t, s.do(t, http.MethodGet, "/api/v1/teacher/exams", nil, ""), http.StatusUnauthorized)
	if errorCode(missing) != "TOKEN_REQUIRED" {
		t.Fatalf("code = %q", errorCode(missing))
	}
	invalid := decode[struct{}](t, s.do(t, http.MethodGet, "/api/v1/teacher/exams", nil, "garbage"), http.StatusUnauthorized)
	if errorCode(invalid) != "TOKEN_INVALID" {
		t.Fatalf("code = %q", errorCode(invalid))
	}
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	env := decode[struct{}](t, s.do(t, http.MethodGet, "/api/v1/nope", nil, ""), http.StatusNotFound)
	if errorCode(env) != "NOT_FOUND" {
		t.Fatalf("code = %q", errorCode(env))
	}
}

func TestCreateExamValidation(t *testing.T) {
	s := newTestServer(t)
	token, _ := setupExam(t, s)

	env := decode[struct{}](t, s.do(t, http.MethodPost, "/api/v1/teacher/exams", map[string]interface{}{
		"title":            "Bad",
		"duration_minutes": 10,
		"questions": []map[string]interface{}{
			{"text": "Q", "options": []string{"a", "b", "c", "d"}, "correct_answer_index": 7, "points": 1},
		},
	}, token), http.StatusBadRequest)
	if errorCode(env) != "VALIDATION_ERROR" {
		t.Fatalf("code = %q", errorCode(env))
	}
	if _, ok := env.Error.Fields["questions[0].correct_answer_index"]; !ok {
		t.Fatalf("fields = %v", env.Error.Fields)
	}
}

func TestStudentFlow(t *testing.T) {
	s := newTestServer(t)
	token, exam := setupExam(t, s)
	code := strings.ToLower(exam.Exam.AccessCode)

	located := decode[struct {
		Exam map[string]interface{} `json:"exam"`
	}](t, s.do(t, http.MethodGet, "/api/v1/student/exams/"+code, nil, ""), http.StatusOK)
	for _, q := range located.Data.Exam["questions"].([]interface{}) {
		if _, leaked := q.(map[string]interface{})["correct_answer_index"]; leaked {
			t.Fatal("student paper leaks the answer key")
		}
	}

	unknown := decode[struct{}](t, s.do(t, http.MethodGet, "/api/v1/student/exams/ZZZZZZ", nil, ""), http.StatusNotFound)
	if errorCode(unknown) != "EXAM_NOT_FOUND" {
		t.Fatalf("unknown code = %q", errorCode(unknown))
	}

	student := map[string]string{"name": "Ada Lovelace", "student_id": "S-01"}
	started := decode[attemptData](t, s.do(t, http.MethodPost, "/api/v1/student/exams/"+code+"/attempts", student, ""), http.StatusCreated)
	att := started.Data.Attempt
	if att.RemainingSeconds != 600 || att.State != "ACTIVE" || len(att.Answers) != 2 || att.Answers[0] != -1 {
		t.Fatalf("attempt = %+v", att)
	}
	if md := started.Metadata; md.AttemptID != att.ID || md.ExamID == "" || md.RequestID == "" {
		t.Fatalf("metadata = %+v", md)
	}

	base := "/api/v1/student/attempts/" + att.ID
	outOfRange := decode[struct{}](t, s.do(t, http.MethodPut, base+"/answers",
		map[string]int{"question_index": 0, "option_index": 9}, ""), http.StatusBadRequest)
	if errorCode(outOfRange) != "INVALID_ANSWER" {
		t.Fatalf("out of range code = %q", errorCode(outOfRange))
	}
	decode[attemptData](t, s.do(t, http.MethodPut, base+"/answers", map[string]int{"question_index": 0, "option_index": 1}, ""), http.StatusOK)
	decode[attemptData](t, s.do(t, http.MethodPut, base+"/answers", map[string]int{"question_index": 1, "option_index": 2}, ""), http.StatusOK)

	res := decode[resultData](t, s.do(t, http.MethodPost, base+"/submit", nil, ""), http.StatusOK)
	sub := res.Data.Result.Submission
	if res.Data.Result.Reason != "manual" || sub.Score != 1 || sub.TotalPoints != 3 {
		t.Fatalf("result = %+v", res.Data.Result)
	}
	if sub.TeacherInfo == nil || sub.TeacherInfo.Name != "Prof. Souloukna" {
		t.Fatalf("teacher snapshot = %+v", sub.TeacherInfo)
	}

	late := decode[struct{}](t, s.do(t, http.MethodPut, base+"/answers", map[string]int{"question_index": 1, "option_index": 0}, ""), http.StatusConflict)
	if errorCode(late) != "ATTEMPT_FINALIZED" {
		t.Fatalf("late select code = %q", errorCode(late))
	}

	dup := decode[struct{}](t, s.do(t, http.MethodPost, "/api/v1/student/exams/"+code+"/attempts", student, ""), http.StatusConflict)
	if errorCode(dup) != "DUPLICATE_ATTEMPT" {
		t.Fatalf("duplicate code = %q", errorCode(dup))
	}

	subs := decode[struct {
		Submissions []map[string]interface{} `json:"submissions"`
	}](t, s.do(t, http.MethodGet, "/api/v1/teacher/exams/"+exam.Exam.ID+"/submissions", nil, token), http.StatusOK)
	if len(subs.Data.Submissions) != 1 {
		t.Fatalf("submissions = %d", len(subs.Data.Submissions))
	}

	dash := decode[struct {
		TotalSubmissions int     `json:"total_submissions"`
		AveragePercent   float64 `json:"average_percent"`
	}](t, s.do(t, http.MethodGet, "/api/v1/teacher/dashboard", nil, token), http.StatusOK)
	if dash.Data.TotalSubmissions != 1 || dash.Data.AveragePercent < 33 || dash.Data.AveragePercent > 34 {
		t.Fatalf("dashboard = %+v", dash.Data)
	}
}

func TestExportRoute(t *testing.T) {
	s := newTestServer(t)
	token, exam := setupExam(t, s)

	resp := s.do(t, http.MethodGet, "/api/v1/teacher/exams/"+exam.Exam.ID+"/export?format=xlsx", nil, token)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "Report_") || !strings.Contains(cd, ".xlsx") {
		t.Fatalf("Content-Disposition = %q", cd)
	}

	bad := decode[struct{}](t, s.do(t, http.MethodGet, "/api/v1/teacher/exams/"+exam.Exam.ID+"/export?format=odt", nil, token), http.StatusBadRequest)
	if errorCode(bad) != "UNSUPPORTED_FORMAT" {
		t.Fatalf("code = %q", errorCode(bad))
	}
}

func TestAttemptStream(t *testing.T) {
	s := newTestServer(t)
	_, exam := setupExam(t, s)

	started := decode[attemptData](t, s.do(t, http.MethodPost, "/api/v1/student/exams/"+exam.Exam.AccessCode+"/attempts",
		map[string]string{"name": "Bo", "student_id": "S-02"}, ""), http.StatusCreated)

	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws/v1/student/attempts/" + started.Data.Attempt.ID + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	send := func(v interface{}) {
		if err := conn.WriteJSON(v); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	// next returns the next event other than tick
	next := func() map[string]interface{} {
		for {
			var ev map[string]interface{}
			if err := conn.ReadJSON(&ev); err != nil {
				t.Fatalf("read: %v", err)
			}
			if ev["event"] != string(ws.EventTick) {
				return ev
			}
		}
	}

	send(map[string]string{"action": "ping"})
	if ev := next(); ev["event"] != string(ws.EventPong) {
		t.Fatalf("ping answered with %v", ev)
	}

	send(map[string]interface{}{"action": "select", "question_index": 1, "option_index": 0})
	if ev := next(); ev["event"] != string(ws.EventSelected) {
		t.Fatalf("select answered with %v", ev)
	}

	send(map[string]interface{}{"action": "select", "question_index": 3, "option_index": 0})
	if ev := next(); ev["event"] != string(ws.EventError) || ev["code"] != "INVALID_ANSWER" {
		t.Fatalf("bad select answered with %v", ev)
	}

	send(map[string]string{"action": "submit"})
	ev := next()
	if ev["event"] != string(ws.EventFinalized) {
		t.Fatalf("submit answered with %v", ev)
	}
	sub := ev["result"].(map[string]interface{})["submission"].(map[string]interface{})
	if sub["score"].(float64) != 2 {
		t.Fatalf("score = %v", sub["score"])
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := s.delivery.Wait(ctx, started.Data.Attempt.ID); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/health", nil, "")
	var st struct {
		Status string `json:"status"`
		Redis  string `json:"redis"`
	}
	json.NewDecoder(resp.Body).Decode(&st)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || st.Status != "ok" || st.Redis != "disabled" {
		t.Fatalf("health = %d %+v", resp.StatusCode, st)
	}

	m := s.do(t, http.MethodGet, "/metrics", nil, "")
	body, _ := io.ReadAll(m.Body)
	m.Body.Close()
	if !strings.Contains(string(body), "eduassess_") {
		t.Fatal("metrics endpoint lacks application collectors")
	}
}
