// Package api exposes the HTTP front-end: it accepts the declarative
// group description, stores it at the engine's config path, and invokes
// the reconciliation engine.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/yvivekan79/vrrp/internal/engine"
)

// Runner is the engine surface the front-end drives.
type Runner interface {
	Create(ctx context.Context) error
	Delete(ctx context.Context) error
	Status(ctx context.Context) engine.Report
}

// Server handles the /vrrp resource.
type Server struct {
	ConfigPath string
	Engine     Runner
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/vrrp", s.handleVRRP)
	return mux
}

func (s *Server) handleVRRP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
	case http.MethodGet:
		s.handleGet(w, r)
	case http.MethodPost, http.MethodPut:
		s.handleApply(w, r)
	case http.MethodDelete:
		s.handleDelete(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
	}
}

// handleGet returns the stored config plus a status report.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(s.ConfigPath)
	if errors.Is(err, os.ErrNotExist) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "config not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": fmt.Sprintf("failed to read config: %v", err)})
		return
	}

	var stored any
	if err := json.Unmarshal(data, &stored); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": fmt.Sprintf("stored config unreadable: %v", err)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"config": stored,
		"status": s.Engine.Status(r.Context()),
	})
}

// handleApply stores the posted document atomically, then runs create.
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "JSON body required"})
		return
	}
	var payload map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": fmt.Sprintf("invalid JSON: %v", err)})
		return
	}
	if _, ok := payload["vrrp"]; !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "top-level 'vrrp' key missing"})
		return
	}

	if err := s.store(payload); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": fmt.Sprintf("failed to write config: %v", err)})
		return
	}

	result := map[string]any{"message": "config saved"}
	code := http.StatusOK
	if err := s.Engine.Create(r.Context()); err != nil {
		slog.Warn("apply failed", "err", err)
		result["apply_error"] = err.Error()
		result["exit_code"] = engine.ExitCode(err)
		code = http.StatusInternalServerError
	}
	writeJSON(w, code, result)
}

// handleDelete tears the node down, then removes the stored config.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	result := map[string]any{"message": "config deleted (if it existed)"}
	code := http.StatusOK

	if err := s.Engine.Delete(r.Context()); err != nil {
		slog.Warn("delete failed", "err", err)
		result["apply_error"] = err.Error()
		result["exit_code"] = engine.ExitCode(err)
	}

	if err := os.Remove(s.ConfigPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		result["message"] = "delete attempted, but failed to remove config file"
		result["file_error"] = err.Error()
		code = http.StatusInternalServerError
	}
	writeJSON(w, code, result)
}

// store writes the document next to the config path, then renames it
// into place so a racing engine run never reads a half-written file.
func (s *Server) store(payload map[string]json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(s.ConfigPath), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	tmp := s.ConfigPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, s.ConfigPath); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("could not encode response", "err", err)
	}
}
