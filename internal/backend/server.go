/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"boardcanvas/internal/config"
	"boardcanvas/internal/domain"
	applog "boardcanvas/internal/log"
	"boardcanvas/internal/storage"
	"boardcanvas/internal/version"
)

const maxBodyBytes = 1 << 20

// Repository is the element store served over HTTP. *storage.Repo implements it.
type Repository interface {
	List(ctx context.Context, boardID string) ([]domain.Element, error)
	Create(ctx context.Context, boardID string, d domain.Draft) (domain.Element, error)
	Update(ctx context.Context, boardID string, id domain.ElementID, p domain.Patch) (domain.Element, error)
	UpdateGeometry(ctx context.Context, boardID string, id domain.ElementID, g domain.Geometry) (domain.Element, error)
	UpdateLocks(ctx context.Context, boardID string, id domain.ElementID, lr domain.LockRequest) (domain.Element, error)
	Delete(ctx context.Context, boardID string, id domain.ElementID) error
	Reorder(ctx context.Context, boardID string, entries []domain.ReorderEntry) ([]domain.Element, error)
	Group(ctx context.Context, boardID string, req domain.GroupRequest) (domain.GroupResult, error)
	Ungroup(ctx context.Context, boardID, groupID string) ([]domain.ElementID, error)
	Copy(ctx context.Context, boardID string, req domain.CopyRequest) (domain.CopyResult, error)
	History(ctx context.Context, boardID string, limit int) ([]domain.HistoryEvent, error)
	Ping(ctx context.Context) error
}

// Server exposes a Repository under /api/boards/{boardID}/elements.
type Server struct {
	repo   Repository
	secret string
	log    *slog.Logger
	router chi.Router
}

// NewServer builds the router. An empty secret disables authentication and the token endpoint.
func NewServer(repo Repository, secret string) *Server {
	s := &Server{repo: repo, secret: secret, log: applog.WithComponent("backend")}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", s.handleReady)
	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(version.String()))
	})

	r.Route("/api", func(r chi.Router) {
		if secret != "" {
			r.Post("/auth/token", s.handleToken)
		}
		r.Group(func(r chi.Router) {
			if secret != "" {
				r.Use(requireAuth(secret))
			}
			r.Route("/boards/{boardID}/elements", func(r chi.Router) {
				r.Get("/", s.handleList)
				r.Post("/", s.handleCreate)
				r.Post("/group", s.handleGroup)
				r.Post("/ungroup", s.handleUngroup)
				r.Patch("/reorder", s.handleReorder)
				r.Post("/copy", s.handleCopy)
				r.Get("/history", s.handleHistory)
				r.Put("/{id}", s.handleUpdate)
				r.Patch("/{id}/transform", s.handleTransform)
				r.Patch("/{id}/lock", s.handleLock)
				r.Delete("/{id}", s.handleDelete)
			})
		})
	})
	s.router = r
	if secret == "" {
		s.log.Warn("token secret not set; API authentication disabled")
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// Start opens the configured repository and serves until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, cfg config.ServerConfig) error {
	logger := applog.WithOperation(applog.WithComponent("backend"), "start")
	repo, err := storage.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Warn("repository close", slog.Any("err", err))
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewServer(repo, cfg.TokenSecret),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.Addr), slog.String("driver", string(repo.Dialect())))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("took", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.repo.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("db not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	board, ok := boardParam(w, r)
	if !ok {
		return
	}
	els, err := s.repo.List(r.Context(), board)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, els)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	board, ok := boardParam(w, r)
	if !ok {
		return
	}
	var d domain.Draft
	if err := decodeJSON(r, &d); err != nil {
		writeError(w, err)
		return
	}
	el, err := s.repo.Create(r.Context(), board, d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, el)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	board, id, ok := elementParams(w, r)
	if !ok {
		return
	}
	var p domain.Patch
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, err)
		return
	}
	el, err := s.repo.Update(r.Context(), board, id, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, el)
}

func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	board, id, ok := elementParams(w, r)
	if !ok {
		return
	}
	var g domain.Geometry
	if err := decodeJSON(r, &g); err != nil {
		writeError(w, err)
		return
	}
	el, err := s.repo.UpdateGeometry(r.Context(), board, id, g)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, el)
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	board, id, ok := elementParams(w, r)
	if !ok {
		return
	}
	var lr domain.LockRequest
	if err := decodeJSON(r, &lr); err != nil {
		writeError(w, err)
		return
	}
	el, err := s.repo.UpdateLocks(r.Context(), board, id, lr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, el)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	board, id, ok := elementParams(w, r)
	if !ok {
		return
	}
	if err := s.repo.Delete(r.Context(), board, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	board, ok := boardParam(w, r)
	if !ok {
		return
	}
	var req domain.GroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.repo.Group(r.Context(), board, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleUngroup(w http.ResponseWriter, r *http.Request) {
	board, ok := boardParam(w, r)
	if !ok {
		return
	}
	var req domain.UngroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ids, err := s.repo.Ungroup(r.Context(), board, req.GroupID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.GroupResult{GroupID: req.GroupID, ElementIDs: ids})
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	board, ok := boardParam(w, r)
	if !ok {
		return
	}
	var req domain.ReorderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	els, err := s.repo.Reorder(r.Context(), board, req.Orders)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, els)
}

func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	board, ok := boardParam(w, r)
	if !ok {
		return
	}
	var req domain.CopyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.repo.Copy(r.Context(), board, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	board, ok := boardParam(w, r)
	if !ok {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeErrorCode(w, http.StatusBadRequest, codeValidation, "invalid limit")
			return
		}
		limit = n
	}
	events, err := s.repo.History(r.Context(), board, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []domain.HistoryEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// --- params and JSON helpers ---

func boardParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	board, err := domain.ParseBoardID(chi.URLParam(r, "boardID"))
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, codeValidation, err.Error())
		return "", false
	}
	return board, true
}

func elementParams(w http.ResponseWriter, r *http.Request) (string, domain.ElementID, bool) {
	board, ok := boardParam(w, r)
	if !ok {
		return "", 0, false
	}
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, codeValidation, fmt.Sprintf("invalid element id %q", raw))
		return "", 0, false
	}
	return board, domain.ElementID(id), true
}

var errBadBody = errors.New("malformed request body")

func decodeJSON(r *http.Request, dst any) error {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	_ = r.Body.Close()
	if err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return fmt.Errorf("%w: empty body", errBadBody)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}

// Error codes carried in the JSON error body.
const (
	codeNotFound       = "not_found"
	codeValidation     = "validation"
	codePositionLocked = "position_locked"
	codeEditingLocked  = "editing_locked"
	codeInternal       = "internal"
)

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, storage.ErrValidation), errors.Is(err, errBadBody):
		return http.StatusBadRequest, codeValidation
	case errors.Is(err, storage.ErrPositionLocked):
		return http.StatusConflict, codePositionLocked
	case errors.Is(err, storage.ErrEditingLocked):
		return http.StatusConflict, codeEditingLocked
	}
	return http.StatusInternalServerError, codeInternal
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		applog.WithComponent("backend").Error("request failed", slog.Any("err", err))
	}
	writeErrorCode(w, status, code, err.Error())
}

func writeErrorCode(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
