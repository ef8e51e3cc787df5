package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/interview-simulator/internal/models"
	"alfredoptarigan/interview-simulator/internal/repositories"
	"alfredoptarigan/interview-simulator/internal/services"
)

type memoryDocuments struct {
	mu   sync.Mutex
	docs map[uuid.UUID]models.Document
}

func newMemoryDocuments() *memoryDocuments {
	return &memoryDocuments{docs: make(map[uuid.UUID]models.Document)}
}

func (m *memoryDocuments) Create(ctx context.Context, document *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if document.ID == uuid.Nil {
		document.ID = uuid.New()
	}
	m.docs[document.ID] = *document
	return nil
}

func (m *memoryDocuments) FindByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &doc, nil
}

func (m *memoryDocuments) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Document, error) {
	var out []models.Document
	for _, id := range ids {
		if doc, err := m.FindByID(ctx, id); err == nil {
			out = append(out, *doc)
		}
	}
	return out, nil
}

type unreachableGateway struct{}

func (unreachableGateway) Complete(ctx context.Context, system, payload string, expectJSON bool) (services.Completion, error) {
	return services.Completion{}, errors.New("dial tcp: connection refused")
}

func newTestApp(t *testing.T) *fiber.App {
	return newTestAppWithGateway(t, services.NewMockGateway())
}

func newTestAppWithGateway(t *testing.T, gateway services.Gateway) *fiber.App {
	t.Helper()

	store := repositories.NewMemoryStore()
	docs := newMemoryDocuments()
	policy := services.NewPersonaPolicy("English")
	prompts := services.NewPromptBuilder(3, 4000)

	orchestrator := services.NewOrchestrator(
		store.Sessions(),
		store.Turns(),
		services.NewQuestionPlanner(gateway, policy, prompts, nil),
		services.NewDecisionEngine(gateway, policy, prompts, nil),
		services.NewSessionLocks(),
		nil,
	)
	reports := services.NewReportService(
		store.Sessions(),
		store.Turns(),
		store.Reports(),
		services.NewReportSynthesizer(gateway, policy, prompts, nil),
		services.NewSessionLocks(),
		nil,
	)

	const maxSize = 1 << 20
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	Register(app.Group("/api/v1"), Handlers{
		Upload:  NewUploadHandler(docs, services.NewStorageService(t.TempDir(), maxSize), services.NewTextExtractor(), maxSize, nil),
		Session: NewSessionHandler(orchestrator, docs, nil),
		Report:  NewReportHandler(reports, nil),
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return send(t, app, req)
}

func send(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode %s %s: %v", req.Method, req.URL.Path, err)
	}
	return resp.StatusCode, decoded
}

func startSession(t *testing.T, app *fiber.App, body map[string]any) string {
	t.Helper()
	status, resp := doJSON(t, app, http.MethodPost, "/api/v1/sessions", body)
	if status != fiber.StatusCreated {
		t.Fatalf("start session: status %d, body %v", status, resp)
	}
	return resp["session_id"].(string)
}

func TestSessionLifecycle(t *testing.T) {
	app := newTestApp(t)

	status, started := doJSON(t, app, http.MethodPost, "/api/v1/sessions", map[string]any{
		"persona":              "friendly",
		"job_description_text": "Backend engineer, Go and Postgres.",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", status, started)
	}
	if started["persona"] != "supportive" {
		t.Fatalf("expected alias to resolve to supportive, got %v", started["persona"])
	}
	if started["first_question"] != "What makes you particularly qualified for this role?" {
		t.Fatalf("unexpected first question %v", started["first_question"])
	}
	voice := started["voice"].(map[string]any)
	if voice["rate"] != 0.95 || voice["pitch"] != 1.05 {
		t.Fatalf("unexpected voice %v", voice)
	}

	id := started["session_id"].(string)
	answers := 0
	var last map[string]any
	for answers < 10 {
		status, last = doJSON(t, app, http.MethodPost, "/api/v1/sessions/"+id+"/answers", map[string]any{"answer": "I shipped the billing rewrite."})
		if status != fiber.StatusOK {
			t.Fatalf("answer %d: status %d, body %v", answers, status, last)
		}
		answers++
		if last["session_completed"] == true {
			break
		}
	}
	// One follow-up per seed, so two answers per question.
	if answers != 6 {
		t.Fatalf("expected completion after 6 answers, got %d", answers)
	}
	if last["next_interviewer_text"] != services.ClosingLine || last["current_seed_index"] != float64(3) {
		t.Fatalf("unexpected final response %v", last)
	}

	status, session := doJSON(t, app, http.MethodGet, "/api/v1/sessions/"+id, nil)
	if status != fiber.StatusOK || session["completed"] != true || session["state"] != "completed" {
		t.Fatalf("unexpected session %d %v", status, session)
	}

	status, transcript := doJSON(t, app, http.MethodGet, "/api/v1/sessions/"+id+"/transcript", nil)
	if status != fiber.StatusOK {
		t.Fatalf("transcript status %d", status)
	}
	turns := transcript["turns"].([]any)
	// Three seeds, three follow-ups and six answers; the closing line is not stored.
	if len(turns) != 12 {
		t.Fatalf("expected 12 turns, got %d", len(turns))
	}
	for i, raw := range turns {
		turn := raw.(map[string]any)
		if turn["sequence_number"] != float64(i+1) {
			t.Fatalf("turn %d has sequence %v", i, turn["sequence_number"])
		}
		want := "interviewer"
		if i%2 == 1 {
			want = "candidate"
		}
		if turn["speaker"] != want {
			t.Fatalf("turn %d spoken by %v, want %s", i, turn["speaker"], want)
		}
	}
	if lastTurn := turns[len(turns)-1].(map[string]any); lastTurn["speaker"] != "candidate" || lastTurn["kind"] != "answer" {
		t.Fatalf("expected transcript to end with the final answer, got %v", lastTurn)
	}

	status, report := doJSON(t, app, http.MethodGet, "/api/v1/sessions/"+id+"/report", nil)
	if status != fiber.StatusOK {
		t.Fatalf("report status %d: %v", status, report)
	}
	if report["summary"] != "Mock summary: interview completed." {
		t.Fatalf("unexpected summary %v", report["summary"])
	}
	if strengths, ok := report["strengths"].([]any); !ok || len(strengths) != 0 {
		t.Fatalf("expected empty strengths list, got %#v", report["strengths"])
	}

	status, resp := doJSON(t, app, http.MethodPost, "/api/v1/sessions/"+id+"/answers", map[string]any{"answer": "one more"})
	if status != fiber.StatusConflict || resp["error"] != "session_already_completed" {
		t.Fatalf("expected 409 session_already_completed, got %d %v", status, resp)
	}
}

func TestSessionErrors(t *testing.T) {
	app := newTestApp(t)
	id := startSession(t, app, map[string]any{"resume_text": "Five years of Go."})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown persona", http.MethodPost, "/api/v1/sessions", map[string]any{"persona": "pirate", "resume_text": "x"}, 400, "invalid_persona"},
		{"no documents", http.MethodPost, "/api/v1/sessions", map[string]any{"persona": "neutral"}, 400, "missing_documents"},
		{"unknown document", http.MethodPost, "/api/v1/sessions", map[string]any{"resume_document_id": uuid.NewString()}, 400, "invalid_document"},
		{"bad session id", http.MethodGet, "/api/v1/sessions/not-a-uuid", nil, 400, "invalid_session_id"},
		{"missing session", http.MethodGet, "/api/v1/sessions/" + uuid.NewString(), nil, 404, "session_not_found"},
		{"missing transcript", http.MethodGet, "/api/v1/sessions/" + uuid.NewString() + "/transcript", nil, 404, "session_not_found"},
		{"empty answer", http.MethodPost, "/api/v1/sessions/" + id + "/answers", map[string]any{"answer": "   "}, 400, "empty_answer"},
		{"report too early", http.MethodGet, "/api/v1/sessions/" + id + "/report", nil, 409, "session_not_complete"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := doJSON(t, app, tt.method, tt.path, tt.body)
			if status != tt.status || resp["error"] != tt.code {
				t.Fatalf("expected %d %s, got %d %v", tt.status, tt.code, status, resp)
			}
			if resp["code"] != float64(tt.status) {
				t.Fatalf("expected code field %d, got %v", tt.status, resp["code"])
			}
		})
	}
}

func TestUploadThenStartFromDocument(t *testing.T) {
	app := newTestApp(t)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("resume", "resume.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("Led the payments team for three years.")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	status, uploaded := send(t, app, req)
	if status != fiber.StatusCreated {
		t.Fatalf("upload status %d: %v", status, uploaded)
	}
	docs := uploaded["documents"].([]any)
	if len(docs) != 1 {
		t.Fatalf("expected one document, got %v", docs)
	}
	doc := docs[0].(map[string]any)
	if doc["file_type"] != "resume" {
		t.Fatalf("unexpected document %v", doc)
	}
	docID := doc["id"].(string)

	status, resp := doJSON(t, app, http.MethodPost, "/api/v1/sessions", map[string]any{"job_description_document_id": docID})
	if status != fiber.StatusBadRequest || !strings.Contains(resp["message"].(string), "not a job_description") {
		t.Fatalf("expected type mismatch rejection, got %d %v", status, resp)
	}

	startSession(t, app, map[string]any{"persona": "beast", "resume_document_id": docID})
}

func TestUploadRejectsUnsupportedFile(t *testing.T) {
	app := newTestApp(t)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, _ := form.CreateFormFile("job_description", "jd.docx")
	_, _ = part.Write([]byte("binary"))
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	status, resp := send(t, app, req)
	if status != fiber.StatusBadRequest || resp["error"] != "invalid_file" {
		t.Fatalf("expected invalid_file, got %d %v", status, resp)
	}
}

func TestUnknownRouteUsesErrorHandler(t *testing.T) {
	app := newTestApp(t)
	status, resp := doJSON(t, app, http.MethodGet, "/api/v1/nope", nil)
	if status != fiber.StatusNotFound || resp["error"] != "http_error" {
		t.Fatalf("expected 404 http_error, got %d %v", status, resp)
	}
}

func TestGatewayOutageOnStart(t *testing.T) {
	app := newTestAppWithGateway(t, unreachableGateway{})

	status, resp := doJSON(t, app, http.MethodPost, "/api/v1/sessions", map[string]any{"resume_text": "Go developer."})
	if status != fiber.StatusServiceUnavailable || resp["error"] != "gateway_unavailable" {
		t.Fatalf("expected 503 gateway_unavailable, got %d %v", status, resp)
	}
	message := resp["message"].(string)
	if strings.Contains(message, "answer") || strings.Contains(message, "connection refused") {
		t.Fatalf("message should neither mention an answer nor leak the cause: %q", message)
	}
}
