/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"boardcanvas/internal/config"
	"boardcanvas/internal/domain"
	"boardcanvas/internal/storage"
)

// APIError is a non-2xx response from the element service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Unwrap maps the error code to the matching storage sentinel so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case codeNotFound:
		return storage.ErrNotFound
	case codeValidation:
		return storage.ErrValidation
	case codePositionLocked:
		return storage.ErrPositionLocked
	case codeEditingLocked:
		return storage.ErrEditingLocked
	}
	return nil
}

// Client talks to the element service. It satisfies the engine's store contract.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClientFromConfig applies the configured timeout and TLS settings.
func NewClientFromConfig(cfg config.BackendConfig, token string) *Client {
	c := NewClient(cfg.BaseURL, token)
	c.client.Timeout = cfg.Timeout()
	if cfg.TLSInsecure {
		c.client.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}} //nolint:gosec // opt-in for self-signed dev servers
	}
	return c
}

func (c *Client) elementsPath(boardID string, parts ...string) string {
	p := "/api/boards/" + url.PathEscape(boardID) + "/elements"
	for _, s := range parts {
		p += "/" + s
	}
	return p
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
			apiErr.Message, apiErr.Code = eb.Error, eb.Code
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// IssueToken asks the service for a bearer token.
func (c *Client) IssueToken(ctx context.Context, subject string, ttl time.Duration) (TokenResponse, error) {
	var out TokenResponse
	body := map[string]any{"subject": subject, "ttl_seconds": int64(ttl / time.Second)}
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/token", body, &out)
	return out, err
}

func (c *Client) List(ctx context.Context, boardID string) ([]domain.Element, error) {
	var out []domain.Element
	if err := c.doJSON(ctx, http.MethodGet, c.elementsPath(boardID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Create(ctx context.Context, boardID string, d domain.Draft) (domain.Element, error) {
	var out domain.Element
	err := c.doJSON(ctx, http.MethodPost, c.elementsPath(boardID), d, &out)
	return out, err
}

func (c *Client) Update(ctx context.Context, boardID string, id domain.ElementID, p domain.Patch) (domain.Element, error) {
	var out domain.Element
	err := c.doJSON(ctx, http.MethodPut, c.elementsPath(boardID, id.String()), p, &out)
	return out, err
}

func (c *Client) UpdateGeometry(ctx context.Context, boardID string, id domain.ElementID, g domain.Geometry) (domain.Element, error) {
	var out domain.Element
	err := c.doJSON(ctx, http.MethodPatch, c.elementsPath(boardID, id.String(), "transform"), g, &out)
	return out, err
}

func (c *Client) UpdateLocks(ctx context.Context, boardID string, id domain.ElementID, lr domain.LockRequest) (domain.Element, error) {
	var out domain.Element
	err := c.doJSON(ctx, http.MethodPatch, c.elementsPath(boardID, id.String(), "lock"), lr, &out)
	return out, err
}

func (c *Client) Delete(ctx context.Context, boardID string, id domain.ElementID) error {
	return c.doJSON(ctx, http.MethodDelete, c.elementsPath(boardID, id.String()), nil, nil)
}

func (c *Client) Reorder(ctx context.Context, boardID string, entries []domain.ReorderEntry) ([]domain.Element, error) {
	var out []domain.Element
	err := c.doJSON(ctx, http.MethodPatch, c.elementsPath(boardID, "reorder"), domain.ReorderRequest{Orders: entries}, &out)
	return out, err
}

func (c *Client) Group(ctx context.Context, boardID string, req domain.GroupRequest) (domain.GroupResult, error) {
	var out domain.GroupResult
	err := c.doJSON(ctx, http.MethodPost, c.elementsPath(boardID, "group"), req, &out)
	return out, err
}

func (c *Client) Ungroup(ctx context.Context, boardID, groupID string) ([]domain.ElementID, error) {
	var out domain.GroupResult
	if err := c.doJSON(ctx, http.MethodPost, c.elementsPath(boardID, "ungroup"), domain.UngroupRequest{GroupID: groupID}, &out); err != nil {
		return nil, err
	}
	return out.ElementIDs, nil
}

func (c *Client) Copy(ctx context.Context, boardID string, req domain.CopyRequest) (domain.CopyResult, error) {
	var out domain.CopyResult
	err := c.doJSON(ctx, http.MethodPost, c.elementsPath(boardID, "copy"), req, &out)
	return out, err
}

// History returns the newest events of a board; limit <= 0 uses the server default.
func (c *Client) History(ctx context.Context, boardID string, limit int) ([]domain.HistoryEvent, error) {
	p := c.elementsPath(boardID, "history")
	if limit > 0 {
		p += "?limit=" + strconv.Itoa(limit)
	}
	var out []domain.HistoryEvent
	if err := c.doJSON(ctx, http.MethodGet, p, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ping checks the service readiness endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/readyz", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode}
	}
	return nil
}
