/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"boardcanvas/internal/backend"
	"boardcanvas/internal/config"
	"boardcanvas/internal/domain"
	"boardcanvas/internal/engine"
	applog "boardcanvas/internal/log"
	"boardcanvas/internal/storage"
	"boardcanvas/internal/telemetry"
)

// Store modes accepted in store.mode.
const (
	ModeHTTP   = "http"
	ModeSQLite = "sqlite"
)

// DefaultSQLitePath is used in sqlite mode when no path is configured.
const DefaultSQLitePath = "boardcanvas.db"

// Store is what a board session needs from its backing store.
type Store interface {
	engine.Store
	List(ctx context.Context, boardID string) ([]domain.Element, error)
	Ping(ctx context.Context) error
}

var (
	_ Store = (*storage.Repo)(nil)
	_ Store = (*backend.Client)(nil)
)

// Session is one opened board: the store it talks to and the engine holding its elements.
type Session struct {
	BoardID string
	Store   Store
	Engine  *engine.Engine

	closeStore func() error
}

// EngineOptions converts the canvas section into engine policy.
func EngineOptions(c config.CanvasConfig) engine.Options {
	return engine.Options{
		MinScale:        c.MinScale,
		MaxScale:        c.MaxScale,
		ZoomFactor:      c.ZoomFactor,
		MinElementSize:  c.MinElementSize,
		DuplicateOffset: c.DuplicateOffset,
		DragThreshold:   c.DragThreshold,
		PersistTimeout:  c.PersistTimeout(),
	}
}

// OpenStore returns the store selected by store.mode together with its closer.
func OpenStore(ctx context.Context, cfg config.AppConfig, token string) (Store, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Store.Mode)) {
	case "", ModeHTTP:
		if strings.TrimSpace(cfg.Backend.BaseURL) == "" {
			return nil, nil, errors.New("backend.base_url is required in http mode")
		}
		c := backend.NewClientFromConfig(cfg.Backend, token)
		return c, func() error { return nil }, nil
	case ModeSQLite:
		path := cfg.Store.SQLitePath
		if strings.TrimSpace(path) == "" {
			path = DefaultSQLitePath
		}
		repo, err := storage.OpenSQLite(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store mode %q", cfg.Store.Mode)
	}
}

// Open loads a board from the configured store and builds its engine.
func Open(ctx context.Context, cfg config.AppConfig, token, boardID string) (*Session, error) {
	id, err := domain.ParseBoardID(boardID)
	if err != nil {
		return nil, err
	}
	l := applog.WithOperation(applog.WithComponent("session"), "open").With(
		slog.String("board", id), slog.String("mode", cfg.Store.Mode))
	store, closeStore, err := OpenStore(ctx, cfg, token)
	if err != nil {
		l.Error("open store failed", slog.Any("err", err))
		return nil, err
	}
	els, err := store.List(ctx, id)
	if err != nil {
		_ = closeStore()
		l.Error("load board failed", slog.Any("err", err))
		return nil, fmt.Errorf("load board %s: %w", id, err)
	}
	l.Info("board loaded", slog.Int("elements", len(els)))
	return New(id, els, store, cfg.Canvas, closeStore), nil
}

// New wraps an already opened store. closeStore may be nil.
func New(boardID string, els []domain.Element, store Store, canvas config.CanvasConfig, closeStore func() error) *Session {
	opts := EngineOptions(canvas)
	opts.OnPersistError = telemetry.Default().PersistFailure
	if closeStore == nil {
		closeStore = func() error { return nil }
	}
	return &Session{
		BoardID:    boardID,
		Store:      store,
		Engine:     engine.New(boardID, els, store, opts),
		closeStore: closeStore,
	}
}

// Reload replaces the engine's elements with the store's current list.
func (s *Session) Reload(ctx context.Context) error {
	els, err := s.Store.List(ctx, s.BoardID)
	if err != nil {
		return err
	}
	s.Engine.Load(els)
	return nil
}

// Close waits for in-flight store calls, applies their results and releases the store.
func (s *Session) Close() error {
	s.Engine.Wait()
	s.Engine.Close()
	return s.closeStore()
}
