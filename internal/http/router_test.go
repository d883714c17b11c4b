package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/devjourney-backend/internal/data/catalog"
	devrepos "github.com/yungbote/devjourney-backend/internal/data/repos/development"
	"github.com/yungbote/devjourney-backend/internal/data/repos/testutil"
	httpH "github.com/yungbote/devjourney-backend/internal/http/handlers"
	httpMW "github.com/yungbote/devjourney-backend/internal/http/middleware"
	"github.com/yungbote/devjourney-backend/internal/services"
)

const testSecret = "test-secret"

type apiFixture struct {
	engine *gin.Engine
	tiers  *testutil.Tiers
	token  string
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := testutil.Logger(t)
	tiers := testutil.NewTiers(t)
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog.Default: %v", err)
	}

	content := services.NewContentService(log, cat)
	sessionRepo := devrepos.NewSessionRepo(tiers.Resolver, log)
	responseRepo := devrepos.NewResponseRepo(tiers.Resolver, log)
	assessmentRepo := devrepos.NewAssessmentRepo(tiers.Resolver, log)
	sessions := services.NewSessionService(log, sessionRepo)
	responses := services.NewResponseService(log, responseRepo, sessionRepo, sessions, content)
	assessments := services.NewAssessmentService(log, assessmentRepo, content)

	engine := NewRouter(RouterConfig{
		Log:               log,
		AuthMiddleware:    httpMW.NewAuthMiddleware(log, services.NewJWTVerifier(testSecret)),
		JourneyHandler:    httpH.NewJourneyHandler(log, content, sessions, responses),
		AssessmentHandler: httpH.NewAssessmentHandler(log, assessments),
		HealthHandler:     httpH.NewHealthHandler(tiers.Resolver, "local"),
	})
	token, err := services.SignAccessToken(testSecret, uuid.New(), time.Hour)
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}
	return &apiFixture{engine: engine, tiers: tiers, token: token}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, env
}

type journeyBody struct {
	ID             string          `json:"id"`
	SessionID      string          `json:"sessionId"`
	Progress       int             `json:"progress"`
	TotalQuestions int             `json:"totalQuestions"`
	Steps          []services.Step `json:"steps"`
}

func (f *apiFixture) getJourney(t *testing.T, subject string, age int) journeyBody {
	t.Helper()
	status, env := f.do(t, http.MethodGet, "/journey/"+subject+"?ageInMonths="+strconv.Itoa(age), nil)
	if status != http.StatusOK || !env.Success {
		t.Fatalf("GET journey: status=%d env=%+v", status, env)
	}
	var j journeyBody
	if err := json.Unmarshal(env.Data, &j); err != nil {
		t.Fatalf("decode journey: %v", err)
	}
	return j
}

func TestJourneyEndToEnd(t *testing.T) {
	f := newAPIFixture(t)
	j := f.getJourney(t, "child-1", 7)

	if len(j.Steps) == 0 || j.Steps[0].Type != services.StepWelcome || !strings.Contains(j.Steps[0].Content, "módulo 7-8 meses") {
		t.Fatalf("welcome step: got=%+v", j.Steps)
	}
	if j.Steps[len(j.Steps)-1].Type != services.StepClosing {
		t.Fatalf("last step: got=%s", j.Steps[len(j.Steps)-1].Type)
	}
	var first *services.Step
	for i := range j.Steps {
		if j.Steps[i].Type == services.StepQuestion {
			first = &j.Steps[i]
			break
		}
	}
	if first == nil {
		t.Fatalf("journey has no question steps")
	}

	status, env := f.do(t, http.MethodPost, "/journey/child-1/answers", gin.H{
		"questionId":       first.QuestionID,
		"selectedOptionId": "-2",
	})
	if status != http.StatusOK || !env.Success {
		t.Fatalf("POST answers: status=%d env=%+v", status, env)
	}

	status, env = f.do(t, http.MethodGet, "/journey/child-1/history", nil)
	if status != http.StatusOK {
		t.Fatalf("GET history: status=%d env=%+v", status, env)
	}
	var history []map[string]any
	if err := json.Unmarshal(env.Data, &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history: want=1 got=%d", len(history))
	}
	h := history[0]
	if h["answer"] != float64(2) || h["answer_text"] != "Às vezes" || h["answerText"] != "Às vezes" {
		t.Fatalf("history entry: got=%v", h)
	}
	if h["question_id"] != first.QuestionID || h["session_id"] != j.SessionID {
		t.Fatalf("history entry ids: got=%v", h)
	}

	// same question again replaces, never duplicates
	f.do(t, http.MethodPost, "/journey/child-1/answers", gin.H{"selectedOptionId": first.QuestionID + "-1"})
	_, env = f.do(t, http.MethodGet, "/journey/child-1/history", nil)
	var replaced []map[string]any
	_ = json.Unmarshal(env.Data, &replaced)
	if len(replaced) != 1 || replaced[0]["answer"] != float64(1) {
		t.Fatalf("history after replace: got=%v", replaced)
	}
}

func TestJourneyResumesSameSession(t *testing.T) {
	f := newAPIFixture(t)
	a := f.getJourney(t, "child-2", 7)
	b := f.getJourney(t, "child-2", 7)
	if a.SessionID == "" || a.SessionID != b.SessionID {
		t.Fatalf("session id: first=%s second=%s", a.SessionID, b.SessionID)
	}
	if status, _ := f.do(t, http.MethodPost, "/journey/child-2/pause", nil); status != http.StatusOK {
		t.Fatalf("pause: status=%d", status)
	}
	c := f.getJourney(t, "child-2", 7)
	if c.SessionID != a.SessionID {
		t.Fatalf("resume after pause: want=%s got=%s", a.SessionID, c.SessionID)
	}
}

func TestJourneyAgeBandChangeKeepsActiveSessionJourney(t *testing.T) {
	f := newAPIFixture(t)
	first := f.getJourney(t, "child-7", 7)
	second := f.getJourney(t, "child-7", 10)
	if second.SessionID != first.SessionID {
		t.Fatalf("session id: want=%s got=%s", first.SessionID, second.SessionID)
	}
	if second.ID != first.ID {
		t.Fatalf("journey id: want active session journey %s got=%s", first.ID, second.ID)
	}

	status, env := f.do(t, http.MethodPost, "/journey/child-7/progress", gin.H{
		"journeyId":   second.ID,
		"currentStep": 1,
	})
	if status != http.StatusOK {
		t.Fatalf("progress with returned journeyId: status=%d env=%+v", status, env)
	}
	var out struct {
		SessionID string `json:"sessionId"`
	}
	_ = json.Unmarshal(env.Data, &out)
	if out.SessionID != first.SessionID {
		t.Fatalf("progress session: want=%s got=%s", first.SessionID, out.SessionID)
	}

	if status, _ := f.do(t, http.MethodPost, "/journey/child-7/complete", nil); status != http.StatusOK {
		t.Fatalf("complete: status=%d", status)
	}
	next := f.getJourney(t, "child-7", 10)
	if next.ID != "modulo-9-12" || next.SessionID == first.SessionID {
		t.Fatalf("journey after completion: got id=%s session=%s", next.ID, next.SessionID)
	}
}

func TestSaveProgressEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	if status, env := f.do(t, http.MethodPost, "/journey/child-3/progress", gin.H{"currentStep": 1}); status != http.StatusNotFound || env.Success {
		t.Fatalf("progress without session: status=%d env=%+v", status, env)
	}

	j := f.getJourney(t, "child-3", 7)
	status, env := f.do(t, http.MethodPost, "/journey/child-3/progress", gin.H{
		"journeyId":      j.ID,
		"currentStep":    4,
		"completedSteps": []string{"welcome", "week-1-title", "week-1-title"},
	})
	if status != http.StatusOK {
		t.Fatalf("progress: status=%d env=%+v", status, env)
	}
	var out struct {
		SessionID string `json:"sessionId"`
		Progress  int    `json:"progress"`
	}
	_ = json.Unmarshal(env.Data, &out)
	if out.SessionID != j.SessionID || out.Progress > 100 {
		t.Fatalf("progress body: got=%+v", out)
	}
	again := f.getJourney(t, "child-3", 7)
	if again.Progress != out.Progress {
		t.Fatalf("journey progress: want=%d got=%d", out.Progress, again.Progress)
	}

	if status, env := f.do(t, http.MethodPost, "/journey/child-3/progress", gin.H{"journeyId": "modulo-1-3", "currentStep": 1}); status != http.StatusBadRequest || env.Code != "journey_mismatch" {
		t.Fatalf("mismatched journey: status=%d env=%+v", status, env)
	}

	if status, _ := f.do(t, http.MethodPost, "/journey/child-3/complete", nil); status != http.StatusOK {
		t.Fatalf("complete: status=%d", status)
	}
	if status, _ := f.do(t, http.MethodPost, "/journey/child-3/complete", nil); status != http.StatusNotFound {
		t.Fatalf("complete without active session: want=404 got=%d", status)
	}
}

func TestJourneyErrors(t *testing.T) {
	f := newAPIFixture(t)
	cases := []struct {
		name, method, path string
		body               any
		want               int
	}{
		{"missing age", http.MethodGet, "/journey/child-4", nil, http.StatusBadRequest},
		{"bad age", http.MethodGet, "/journey/child-4?ageInMonths=abc", nil, http.StatusBadRequest},
		{"no content", http.MethodGet, "/journey/child-4?ageInMonths=40", nil, http.StatusNotFound},
		{"unknown question", http.MethodPost, "/journey/child-4/answers", gin.H{"selectedOptionId": "nope-1"}, http.StatusBadRequest},
		{"bad code", http.MethodPost, "/journey/child-4/answers", gin.H{"questionId": "q-7-8-motor-sentar", "selectedOptionId": "-7"}, http.StatusBadRequest},
		{"missing option", http.MethodPost, "/journey/child-4/answers", gin.H{"questionId": "q-7-8-motor-sentar"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		status, env := f.do(t, tc.method, tc.path, tc.body)
		if status != tc.want || env.Success || env.Error == "" {
			t.Fatalf("%s: want=%d got=%d env=%+v", tc.name, tc.want, status, env)
		}
	}

	f.token = ""
	if status, _ := f.do(t, http.MethodGet, "/journey/child-4?ageInMonths=7", nil); status != http.StatusUnauthorized {
		t.Fatalf("no token: want=401 got=%d", status)
	}
}

func TestJourneyProgressByDomain(t *testing.T) {
	f := newAPIFixture(t)
	j := f.getJourney(t, "child-5", 7)
	for _, st := range j.Steps {
		if st.Type == services.StepQuestion && st.Domain == "motor" {
			f.do(t, http.MethodPost, "/journey/child-5/answers", gin.H{"questionId": st.QuestionID, "selectedOptionId": "-1"})
		}
	}
	status, env := f.do(t, http.MethodGet, "/journey/child-5/progress", nil)
	if status != http.StatusOK {
		t.Fatalf("progress: status=%d env=%+v", status, env)
	}
	var report services.ProgressReport
	if err := json.Unmarshal(env.Data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	for _, d := range report.Domains {
		if d.Domain == "motor" && d.Percentage != 100 {
			t.Fatalf("motor: want=100 got=%d", d.Percentage)
		}
		if d.Domain != "motor" && d.Completed != 0 {
			t.Fatalf("%s: want 0 completed got=%d", d.Domain, d.Completed)
		}
	}
	if report.Overall <= 0 || report.Overall >= 100 {
		t.Fatalf("overall: got=%d", report.Overall)
	}
}

func TestAssessmentEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	status, env := f.do(t, http.MethodGet, "/assessments/questions?ageInMonths=7&domain=linguagem", nil)
	if status != http.StatusOK {
		t.Fatalf("questions: status=%d env=%+v", status, env)
	}
	var questions []map[string]any
	_ = json.Unmarshal(env.Data, &questions)
	if len(questions) == 0 {
		t.Fatalf("questions: want some linguagem entries")
	}
	for _, q := range questions {
		if q["domain"] != "linguagem" || q["ageMinMonths"] == nil {
			t.Fatalf("question: got=%v", q)
		}
	}

	status, env = f.do(t, http.MethodPost, "/assessments/child-6", gin.H{"ageInMonths": 7, "domains": []string{"linguagem"}})
	if status != http.StatusOK {
		t.Fatalf("start: status=%d env=%+v", status, env)
	}
	var a map[string]any
	_ = json.Unmarshal(env.Data, &a)
	id, _ := a["id"].(string)
	items, _ := a["items"].([]any)
	if id == "" || len(items) != len(questions) {
		t.Fatalf("start body: got=%v", a)
	}
	firstItem := items[0].(map[string]any)
	qid := firstItem["question_id"].(string)

	base := "/assessments/child-6/" + id
	if status, env := f.do(t, http.MethodPut, base+"/responses", gin.H{"questionId": qid, "responseLevel": 2}); status != http.StatusOK {
		t.Fatalf("put response: status=%d env=%+v", status, env)
	}
	if status, _ := f.do(t, http.MethodPut, base+"/responses", gin.H{"questionId": qid, "responseLevel": 9}); status != http.StatusBadRequest {
		t.Fatalf("bad level: want=400 got=%d", status)
	}

	status, env = f.do(t, http.MethodGet, base+"/progress", nil)
	var report services.ProgressReport
	_ = json.Unmarshal(env.Data, &report)
	if status != http.StatusOK || len(report.Domains) != 1 || report.Domains[0].Completed != 1 {
		t.Fatalf("progress: status=%d report=%+v", status, report)
	}

	if status, _ := f.do(t, http.MethodPost, base+"/complete", nil); status != http.StatusOK {
		t.Fatalf("complete: status=%d", status)
	}
	status, env = f.do(t, http.MethodGet, base, nil)
	_ = json.Unmarshal(env.Data, &a)
	if status != http.StatusOK || a["status"] != "completed" {
		t.Fatalf("get after complete: status=%d body=%v", status, a)
	}
	if status, _ := f.do(t, http.MethodGet, "/assessments/child-7/"+id, nil); status != http.StatusNotFound {
		t.Fatalf("other subject: want=404 got=%d", status)
	}
}

func TestHealthEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	f.token = ""
	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: got=%d %q", rec.Code, rec.Body.String())
	}

	status, env := f.do(t, http.MethodGet, "/healthcheck/stores", nil)
	if status != http.StatusOK || !env.Success {
		t.Fatalf("stores healthy: status=%d env=%+v", status, env)
	}
	f.tiers.Local.SetDown(true)
	if status, _ := f.do(t, http.MethodGet, "/healthcheck/stores", nil); status != http.StatusServiceUnavailable {
		t.Fatalf("stores with local down: want=503 got=%d", status)
	}
}
