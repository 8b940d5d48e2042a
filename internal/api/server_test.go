package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yvivekan79/vrrp/internal/engine"
)

type fakeRunner struct {
	creates   int
	deletes   int
	createErr error
}

func (f *fakeRunner) Create(context.Context) error { f.creates++; return f.createErr }
func (f *fakeRunner) Delete(context.Context) error { f.deletes++; return nil }
func (f *fakeRunner) Status(context.Context) engine.Report {
	return engine.Report{ConfigLoaded: true}
}

func newServer(t *testing.T) (*Server, *fakeRunner) {
	t.Helper()
	runner := &fakeRunner{}
	return &Server{
		ConfigPath: filepath.Join(t.TempDir(), "conf.d", "conf.json"),
		Engine:     runner,
	}, runner
}

const body = `{"vrrp": {"GroupID": 1, "VIP": "192.168.193.1", "VRID": 51, "Nodes": []}}`

func post(h http.Handler, payload, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/vrrp", strings.NewReader(payload))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestApply(t *testing.T) {
	t.Run("saves config and runs create", func(t *testing.T) {
		s, runner := newServer(t)
		rec := post(s.Handler(), body, "application/json")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
		}
		if runner.creates != 1 {
			t.Fatalf("expected 1 create, got %d", runner.creates)
		}
		data, err := os.ReadFile(s.ConfigPath)
		if err != nil {
			t.Fatalf("config not stored: %v", err)
		}
		if !strings.Contains(string(data), `"VRID"`) {
			t.Fatalf("stored config lost content: %s", data)
		}
	})

	t.Run("missing vrrp key rejected", func(t *testing.T) {
		s, runner := newServer(t)
		rec := post(s.Handler(), `{"other": {}}`, "application/json")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if runner.creates != 0 {
			t.Fatal("create ran despite rejected payload")
		}
	})

	t.Run("non-JSON content type rejected", func(t *testing.T) {
		s, _ := newServer(t)
		rec := post(s.Handler(), body, "text/plain")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("engine failure yields 500 with exit code", func(t *testing.T) {
		s, runner := newServer(t)
		runner.createErr = errors.New("bridge interface not found")
		rec := post(s.Handler(), body, "application/json")

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		var resp map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if _, ok := resp["apply_error"]; !ok {
			t.Fatalf("expected apply_error in response: %v", resp)
		}
	})
}

func TestGet(t *testing.T) {
	t.Run("404 without config", func(t *testing.T) {
		s, _ := newServer(t)
		req := httptest.NewRequest(http.MethodGet, "/vrrp", nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("returns config and status", func(t *testing.T) {
		s, _ := newServer(t)
		post(s.Handler(), body, "application/json")

		req := httptest.NewRequest(http.MethodGet, "/vrrp", nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var resp struct {
			Config map[string]any `json:"config"`
			Status engine.Report  `json:"status"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if _, ok := resp.Config["vrrp"]; !ok {
			t.Fatalf("config missing from response: %v", resp.Config)
		}
		if !resp.Status.ConfigLoaded {
			t.Fatalf("status missing from response: %+v", resp.Status)
		}
	})
}

func TestDelete(t *testing.T) {
	t.Run("tears down and removes config", func(t *testing.T) {
		s, runner := newServer(t)
		post(s.Handler(), body, "application/json")

		req := httptest.NewRequest(http.MethodDelete, "/vrrp", nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if runner.deletes != 1 {
			t.Fatalf("expected 1 delete, got %d", runner.deletes)
		}
		if _, err := os.Stat(s.ConfigPath); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("config file still present: %v", err)
		}
	})

	t.Run("no config file is fine", func(t *testing.T) {
		s, _ := newServer(t)
		req := httptest.NewRequest(http.MethodDelete, "/vrrp", nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})
}

func TestOptions(t *testing.T) {
	s, _ := newServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/vrrp", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
