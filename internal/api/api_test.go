package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/dailylog/internal/diary"
	"github.com/starford/dailylog/internal/index"
	"github.com/starford/dailylog/internal/storage"
	"github.com/starford/dailylog/internal/testutil"
)

var testNow = time.Date(2025, 1, 20, 9, 30, 0, 0, time.UTC)

type testEnvironment struct {
	svc    *diary.Service
	store  storage.Provider
	db     *index.DB
	router http.Handler
}

// testEnv sets up a temp vault, SQLite DB, diary service, and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) *testEnvironment {
	t.Helper()
	return testEnvFull(t, authToken != "", authToken, nil)
}

func testEnvFull(t *testing.T, authEnabled bool, authToken string, sseHandler http.Handler) *testEnvironment {
	t.Helper()

	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)

	settings := diary.DefaultSettings()
	settings.Folder = "Diary"
	settings.CreatedTitle = "## Created"
	settings.EditedTitle = "## Edited"

	svc, err := diary.NewService(store, settings,
		diary.WithJournal(db),
		diary.WithClock(func() time.Time { return testNow }),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &testEnvironment{
		svc:    svc,
		store:  store,
		db:     db,
		router: NewRouter(svc, db, authEnabled, authToken, sseHandler),
	}
}

func postEvent(t *testing.T, router http.Handler, path, kind, token string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"path": path, "kind": kind})
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPostEventAndGetDiary(t *testing.T) {
	env := testEnv(t, "")

	w := postEvent(t, env.router, "projects/plan.md", "created", "")
	if w.Code != http.StatusOK {
		t.Fatalf("post status = %d, body = %s", w.Code, w.Body.String())
	}
	var out diary.Outcome
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Status != diary.StatusWritten || out.DiaryPath != "Diary/2025-01-20.md" {
		t.Fatalf("outcome = %+v", out)
	}

	req := httptest.NewRequest(http.MethodGet, "/diary", nil)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var resp DiaryResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Date != "2025-01-20" {
		t.Errorf("date = %q", resp.Date)
	}
	if !strings.Contains(resp.Content, "- [[plan]] (09:30 created)") {
		t.Errorf("content = %q", resp.Content)
	}
}

func TestGetDiaryByDate(t *testing.T) {
	env := testEnv(t, "")
	postEvent(t, env.router, "a.md", "created", "")

	req := httptest.NewRequest(http.MethodGet, "/diary/2025-01-20", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestGetDiary_NotFound(t *testing.T) {
	env := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/diary/2024-12-31", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing diary = %d, want 404", w.Code)
	}
}

func TestGetDiary_BadDate(t *testing.T) {
	env := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/diary/yesterday", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad date = %d, want 400", w.Code)
	}
}

func TestPostEvent_Validation(t *testing.T) {
	env := testEnv(t, "")

	if w := postEvent(t, env.router, "a.md", "deleted", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad kind = %d, want 400", w.Code)
	}
	if w := postEvent(t, env.router, "", "created", ""); w.Code != http.StatusBadRequest {
		t.Errorf("empty path = %d, want 400", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d, want 400", w.Code)
	}
}

func TestPostEvent_SkippedAndUnchanged(t *testing.T) {
	env := testEnv(t, "")

	w := postEvent(t, env.router, "image.png", "created", "")
	var out diary.Outcome
	_ = json.NewDecoder(w.Body).Decode(&out)
	if out.Status != diary.StatusSkipped {
		t.Errorf("png outcome = %+v", out)
	}

	postEvent(t, env.router, "a.md", "created", "")
	w = postEvent(t, env.router, "a.md", "created", "")
	out = diary.Outcome{}
	_ = json.NewDecoder(w.Body).Decode(&out)
	if out.Status != diary.StatusUnchanged {
		t.Errorf("duplicate outcome = %+v", out)
	}
}

func TestListActivity(t *testing.T) {
	env := testEnv(t, "")
	postEvent(t, env.router, "one.md", "created", "")
	postEvent(t, env.router, "two.md", "modified", "")

	req := httptest.NewRequest(http.MethodGet, "/activity?date=2025-01-20&limit=10", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ActivityResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Activity) != 2 {
		t.Fatalf("activity = %d, want 2", len(resp.Activity))
	}

	req = httptest.NewRequest(http.MethodGet, "/activity?date=2025-01-19", nil)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	resp = ActivityResponse{}
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Activity) != 0 {
		t.Errorf("other day activity = %d, want 0", len(resp.Activity))
	}
}

func TestListActivity_BadDate(t *testing.T) {
	env := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/activity?date=20250120", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad date = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	env := testEnv(t, "secret123")

	w := postEvent(t, env.router, "auth.md", "created", "secret123")
	if w.Code != http.StatusOK {
		t.Errorf("authed post = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	env := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/activity", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	env := testEnv(t, "secret123")

	w := postEvent(t, env.router, "x.md", "created", "wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
	if ok, _ := env.store.Exists("Diary/2025-01-20.md"); ok {
		t.Error("rejected request must not write the diary")
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	env := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/activity", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// sseStub writes stream headers and blocks until the request context ends.
var sseStub = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	env := testEnvFull(t, true, "secret", sseStub)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthDisabled(t *testing.T) {
	env := testEnvFull(t, false, "", sseStub)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE should not require auth when disabled")
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	env := testEnvFull(t, true, "tok", sseStub)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}
