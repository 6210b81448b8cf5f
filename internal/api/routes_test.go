package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/refract/refract-studio/internal/db"
	"github.com/refract/refract-studio/internal/editor"
	"github.com/refract/refract-studio/internal/media"
	"github.com/refract/refract-studio/internal/playback"
	"github.com/refract/refract-studio/internal/project"
)

const testToken = "test-token"

type testEnv struct {
	cfg      ServerConfig
	router   *chi.Mux
	projects *project.Service
	prober   *media.StubProber
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	repo := project.NewRepository(database.Conn())
	if err := repo.SetConfig(context.Background(), AuthTokenKey, testToken); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}

	svc := project.NewService(repo, logger)
	prober := &media.StubProber{Err: media.ErrNoDuration}
	mgr, err := editor.NewManager(svc, prober, editor.DefaultSettings(), logger)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	t.Cleanup(mgr.CloseAll)

	cfg := ServerConfig{
		Projects:    svc,
		Editor:      mgr,
		MediaServer: playback.NewServer(logger),
		Repository:  repo,
		Logger:      logger,
		StartTime:   time.Now(),
		DeviceID:    "test-device",
		MediaDir:    t.TempDir(),
	}
	return &testEnv{cfg: cfg, router: NewRouter(cfg), projects: svc, prober: prober}
}

// do sends an authenticated loopback request through the router.
func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json.Marshal error: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "127.0.0.1:40000"
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) createProject(t *testing.T, body map[string]any) string {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/projects", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create project status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var p project.Project
	decodeInto(t, rr, &p)
	return p.ID
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func decodeInto(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rr.Body.String(), err)
	}
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, want, rr.Body.String())
	}
}

func TestHealth_NoAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assertStatus(t, rr, http.StatusOK)
	var body HealthResponse
	decodeInto(t, rr, &body)
	if body.Status != "ok" || body.DeviceID != "test-device" || body.Playing != 0 {
		t.Errorf("health = %+v", body)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestProjects_RequireAuth(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic abc"},
		{"wrong token", "Bearer nope"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/projects", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			env.router.ServeHTTP(rr, req)

			assertStatus(t, rr, http.StatusUnauthorized)
			body := decodeJSONBody(t, rr)
			if body["code"] != "UNAUTHORIZED" {
				t.Errorf("code = %v, want UNAUTHORIZED", body["code"])
			}
		})
	}
}

func TestProjects_CRUD(t *testing.T) {
	env := newTestEnv(t)

	id := env.createProject(t, map[string]any{
		"name":       "Night market",
		"metaPrompt": map[string]any{"generalPrompt": "rainy neon"},
	})

	rr := env.do(t, http.MethodGet, "/projects/"+id, nil)
	assertStatus(t, rr, http.StatusOK)
	body := decodeJSONBody(t, rr)
	if body["name"] != "Night market" {
		t.Errorf("name = %v", body["name"])
	}
	meta, _ := body["metaPrompt"].(map[string]interface{})
	if meta["generalPrompt"] != "rainy neon" {
		t.Errorf("metaPrompt = %v", body["metaPrompt"])
	}
	if _, ok := body["createdAt"]; !ok {
		t.Error("createdAt missing")
	}

	rr = env.do(t, http.MethodPut, "/projects/"+id, map[string]any{"name": "Night market v2"})
	assertStatus(t, rr, http.StatusOK)
	if body := decodeJSONBody(t, rr); body["name"] != "Night market v2" {
		t.Errorf("replaced name = %v", body["name"])
	}

	rr = env.do(t, http.MethodGet, "/projects", nil)
	assertStatus(t, rr, http.StatusOK)
	var list ProjectsResponse
	decodeInto(t, rr, &list)
	if len(list.Projects) != 1 || list.Projects[0].ID != id {
		t.Fatalf("list = %+v", list.Projects)
	}

	rr = env.do(t, http.MethodDelete, "/projects/"+id, nil)
	assertStatus(t, rr, http.StatusNoContent)

	assertStatus(t, env.do(t, http.MethodGet, "/projects/"+id, nil), http.StatusNotFound)
	assertStatus(t, env.do(t, http.MethodPut, "/projects/"+id, map[string]any{"name": "x"}), http.StatusNotFound)
	assertStatus(t, env.do(t, http.MethodDelete, "/projects/"+id, nil), http.StatusNotFound)
}

func TestProjects_ListEmpty(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/projects", nil)
	assertStatus(t, rr, http.StatusOK)
	body := decodeJSONBody(t, rr)
	projects, ok := body["projects"].([]interface{})
	if !ok || len(projects) != 0 {
		t.Errorf("projects = %v, want empty array", body["projects"])
	}
}

func TestCreateProject_BadInput(t *testing.T) {
	env := newTestEnv(t)

	assertStatus(t, env.do(t, http.MethodPost, "/projects", map[string]any{"name": "  "}), http.StatusBadRequest)

	req := httptest.NewRequest(http.MethodPost, "/projects", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestDeleteProject_ClosesSession(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProject(t, map[string]any{"name": "Short"})

	assertStatus(t, env.do(t, http.MethodGet, "/projects/"+id+"/timeline", nil), http.StatusOK)
	if _, ok := env.cfg.Editor.Lookup(id); !ok {
		t.Fatal("session should be open after reading the timeline")
	}

	assertStatus(t, env.do(t, http.MethodDelete, "/projects/"+id, nil), http.StatusNoContent)
	if _, ok := env.cfg.Editor.Lookup(id); ok {
		t.Error("session still open after delete")
	}
}

func TestMoveShot(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProject(t, map[string]any{
		"name": "Shots",
		"shots": []map[string]any{
			{"id": "s1", "description": "wide"},
			{"id": "s2", "description": "close"},
		},
		"textShots": []map[string]any{
			{"id": "t1", "content": "intro"},
			{"id": "t2", "content": "outro"},
		},
	})

	rr := env.do(t, http.MethodPost, "/projects/"+id+"/shots/s1/move", MoveRequest{Direction: "down"})
	assertStatus(t, rr, http.StatusOK)
	var p project.Project
	decodeInto(t, rr, &p)
	if p.Shots[0].ID != "s2" || p.Shots[1].ID != "s1" {
		t.Errorf("shots = %v, want [s2 s1]", p.Shots)
	}

	// Moving past the end keeps the order.
	rr = env.do(t, http.MethodPost, "/projects/"+id+"/text-shots/t2/move", MoveRequest{Direction: "right"})
	assertStatus(t, rr, http.StatusOK)
	decodeInto(t, rr, &p)
	if p.TextShots[0].ID != "t1" || p.TextShots[1].ID != "t2" {
		t.Errorf("text shots = %v, want [t1 t2]", p.TextShots)
	}

	assertStatus(t, env.do(t, http.MethodPost, "/projects/"+id+"/shots/s1/move", MoveRequest{Direction: "left"}), http.StatusBadRequest)
	assertStatus(t, env.do(t, http.MethodPost, "/projects/missing/shots/s1/move", MoveRequest{Direction: "up"}), http.StatusNotFound)
}

func TestHealthRoute_CORS_Integration(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()

	env.router.ServeHTTP(rr, req)

	assertStatus(t, rr, http.StatusOK)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q, want %q", got, "http://localhost:3000")
	}
}

func TestPreflight_SkipsAuth(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/projects", nil)
	req.Header.Set("Origin", "http://127.0.0.1:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()

	env.router.ServeHTTP(rr, req)

	assertStatus(t, rr, http.StatusNoContent)
	if !containsHeader(rr.Header().Get("Access-Control-Allow-Methods"), "POST") {
		t.Errorf("Allow-Methods = %q, want POST", rr.Header().Get("Access-Control-Allow-Methods"))
	}
}
