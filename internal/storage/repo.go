/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"boardcanvas/internal/domain"
	applog "boardcanvas/internal/log"
)

var (
	ErrNotFound       = errors.New("element not found")
	ErrValidation     = errors.New("validation failed")
	ErrPositionLocked = errors.New("element position is locked")
	ErrEditingLocked  = errors.New("element editing is locked")
)

// DefaultGroupName is used when a group request carries no name.
const DefaultGroupName = "Group"

const elementColumns = `id, type, x, y, width, height, rotation, z_index, group_id, locked_position, locked_editing, media_id, properties`

// language=SQL
const selectElementsSQL = `SELECT ` + elementColumns + ` FROM elements WHERE board_id = ? ORDER BY z_index, id`

// language=SQL
const selectElementSQL = `SELECT ` + elementColumns + ` FROM elements WHERE board_id = ? AND id = ?`

// language=SQL
const insertElementSQL = `INSERT INTO elements(board_id, type, x, y, width, height, rotation, z_index, group_id,
	locked_position, locked_editing, media_id, properties, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`

// language=SQL
const updateElementSQL = `UPDATE elements SET type = ?, x = ?, y = ?, width = ?, height = ?, rotation = ?, z_index = ?,
	group_id = ?, locked_position = ?, locked_editing = ?, media_id = ?, properties = ?, updated_at = ?
	WHERE board_id = ? AND id = ?`

// language=SQL
const deleteElementSQL = `DELETE FROM elements WHERE board_id = ? AND id = ?`

// language=SQL
const nextZSQL = `SELECT COALESCE(MAX(z_index), -1) + 1 FROM elements WHERE board_id = ?`

// language=SQL
const groupExistsSQL = `SELECT COUNT(*) FROM element_groups WHERE board_id = ? AND id = ?`

// language=SQL
const insertGroupSQL = `INSERT INTO element_groups(id, board_id, name, created_at) VALUES (?, ?, ?, ?)`

// language=SQL
const groupMembersSQL = `SELECT ` + elementColumns + ` FROM elements WHERE board_id = ? AND group_id = ? ORDER BY z_index, id`

// language=SQL
const deleteGroupSQL = `DELETE FROM element_groups WHERE board_id = ? AND id = ?`

// language=SQL
const insertHistorySQL = `INSERT INTO element_history(board_id, element_id, event_type, before_json, after_json, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`

// language=SQL
const selectHistorySQL = `SELECT id, board_id, element_id, event_type, before_json, after_json, created_at
	FROM element_history WHERE board_id = ? ORDER BY id DESC LIMIT ?`

// Repo persists board elements, groups and their history in a SQL database.
type Repo struct {
	db      *sql.DB
	dialect Dialect
	log     *slog.Logger
}

// NewRepo wraps an already migrated database handle.
func NewRepo(db *sql.DB, d Dialect) *Repo { return newRepo(db, d) }

func newRepo(db *sql.DB, d Dialect) *Repo {
	return &Repo{db: db, dialect: d, log: applog.WithComponent("storage").With(slog.String("dialect", string(d)))}
}

func (r *Repo) DB() *sql.DB       { return r.db }
func (r *Repo) Dialect() Dialect  { return r.dialect }
func (r *Repo) Close() error      { return r.db.Close() }
func (r *Repo) q(s string) string { return rebind(r.dialect, s) }

// Ping checks database connectivity.
func (r *Repo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repo) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// List returns the board's elements ordered by zIndex then id.
func (r *Repo) List(ctx context.Context, boardID string) ([]domain.Element, error) {
	return r.queryElements(ctx, r.db, selectElementsSQL, boardID)
}

// Get returns one element of the board.
func (r *Repo) Get(ctx context.Context, boardID string, id domain.ElementID) (domain.Element, error) {
	return r.get(ctx, r.db, boardID, id)
}

// Create inserts an element, filling in store defaults for optional fields.
func (r *Repo) Create(ctx context.Context, boardID string, d domain.Draft) (domain.Element, error) {
	if !d.Type.Valid() {
		return domain.Element{}, validation("unknown element type %q", d.Type)
	}
	if d.Width <= 0 || d.Height <= 0 {
		return domain.Element{}, validation("width and height must be > 0")
	}
	el := domain.Element{
		Type:       d.Type,
		X:          d.X,
		Y:          d.Y,
		Width:      d.Width,
		Height:     d.Height,
		MediaID:    d.MediaID,
		Properties: d.Properties,
	}
	if d.Rotation != nil {
		el.Rotation = *d.Rotation
	}
	if err := el.Geometry().Valid(); err != nil {
		return domain.Element{}, validation("%v", err)
	}
	if len(el.Properties) == 0 {
		el.Properties = json.RawMessage(`{}`)
	} else if !json.Valid(el.Properties) {
		return domain.Element{}, validation("properties must be valid JSON")
	}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if d.ZIndex != nil {
			el.ZIndex = *d.ZIndex
		} else {
			if err := tx.QueryRowContext(ctx, r.q(nextZSQL), boardID).Scan(&el.ZIndex); err != nil {
				return fmt.Errorf("next z-index: %w", err)
			}
		}
		if d.GroupID != nil && *d.GroupID != "" {
			if err := r.requireGroup(ctx, tx, boardID, *d.GroupID); err != nil {
				return err
			}
			g := *d.GroupID
			el.GroupID = &g
		}
		id, err := r.insert(ctx, tx, boardID, el)
		if err != nil {
			return err
		}
		el.ID = id
		return r.record(ctx, tx, boardID, &el.ID, domain.EventCreated, nil, el)
	})
	if err != nil {
		return domain.Element{}, err
	}
	r.log.Debug("element created", slog.String("board", boardID), slog.Int64("id", int64(el.ID)))
	return el, nil
}

// Update applies a partial update. Elements locked for editing are rejected.
func (r *Repo) Update(ctx context.Context, boardID string, id domain.ElementID, p domain.Patch) (domain.Element, error) {
	var out domain.Element
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		before, err := r.get(ctx, tx, boardID, id)
		if err != nil {
			return err
		}
		if before.LockedEditing {
			return fmt.Errorf("%w: element %d", ErrEditingLocked, id)
		}
		el := before.Clone()
		setFloat(&el.X, p.X)
		setFloat(&el.Y, p.Y)
		setFloat(&el.Width, p.Width)
		setFloat(&el.Height, p.Height)
		setFloat(&el.Rotation, p.Rotation)
		if p.ZIndex != nil {
			el.ZIndex = *p.ZIndex
		}
		if p.LockedPosition != nil {
			el.LockedPosition = *p.LockedPosition
		}
		if p.LockedEditing != nil {
			el.LockedEditing = *p.LockedEditing
		}
		if p.MediaID != nil {
			m := *p.MediaID
			el.MediaID = &m
		}
		if len(p.Properties) > 0 {
			if !json.Valid(p.Properties) {
				return validation("properties must be valid JSON")
			}
			el.Properties = append(json.RawMessage(nil), p.Properties...)
		}
		if p.GroupID != nil {
			if *p.GroupID == "" {
				el.GroupID = nil
			} else {
				if err := r.requireGroup(ctx, tx, boardID, *p.GroupID); err != nil {
					return err
				}
				g := *p.GroupID
				el.GroupID = &g
			}
		}
		if err := el.Geometry().Valid(); err != nil {
			return validation("%v", err)
		}
		if el.Width <= 0 || el.Height <= 0 {
			return validation("width and height must be > 0")
		}
		if err := r.write(ctx, tx, boardID, el); err != nil {
			return err
		}
		out = el
		return r.record(ctx, tx, boardID, &el.ID, domain.EventUpdated, before, el)
	})
	return out, err
}

// UpdateGeometry writes position, size and rotation. Position locked elements are rejected.
func (r *Repo) UpdateGeometry(ctx context.Context, boardID string, id domain.ElementID, g domain.Geometry) (domain.Element, error) {
	if err := g.Valid(); err != nil {
		return domain.Element{}, validation("%v", err)
	}
	var out domain.Element
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		before, err := r.get(ctx, tx, boardID, id)
		if err != nil {
			return err
		}
		if before.LockedPosition {
			return fmt.Errorf("%w: element %d", ErrPositionLocked, id)
		}
		el := before.WithGeometry(g)
		if err := r.write(ctx, tx, boardID, el); err != nil {
			return err
		}
		out = el
		return r.record(ctx, tx, boardID, &el.ID, domain.EventUpdated, before, el)
	})
	return out, err
}

// UpdateLocks sets the lock flags present in the request.
func (r *Repo) UpdateLocks(ctx context.Context, boardID string, id domain.ElementID, lr domain.LockRequest) (domain.Element, error) {
	var out domain.Element
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		before, err := r.get(ctx, tx, boardID, id)
		if err != nil {
			return err
		}
		el := before.Clone()
		if lr.LockedPosition != nil {
			el.LockedPosition = *lr.LockedPosition
		}
		if lr.LockedEditing != nil {
			el.LockedEditing = *lr.LockedEditing
		}
		if err := r.write(ctx, tx, boardID, el); err != nil {
			return err
		}
		out = el
		return r.record(ctx, tx, boardID, &el.ID, domain.EventUpdated, before, el)
	})
	return out, err
}

// Delete removes an element.
func (r *Repo) Delete(ctx context.Context, boardID string, id domain.ElementID) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		before, err := r.get(ctx, tx, boardID, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, r.q(deleteElementSQL), boardID, id); err != nil {
			return fmt.Errorf("delete element %d: %w", id, err)
		}
		return r.record(ctx, tx, boardID, &before.ID, domain.EventDeleted, before, nil)
	})
	if err == nil {
		r.log.Debug("element deleted", slog.String("board", boardID), slog.Int64("id", int64(id)))
	}
	return err
}

// Reorder assigns a zIndex to each listed element. Every id must belong to the board.
func (r *Repo) Reorder(ctx context.Context, boardID string, entries []domain.ReorderEntry) ([]domain.Element, error) {
	if len(entries) == 0 {
		return nil, validation("no elements to reorder")
	}
	out := make([]domain.Element, 0, len(entries))
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		for _, e := range entries {
			before, err := r.get(ctx, tx, boardID, e.ID)
			if errors.Is(err, ErrNotFound) {
				return validation("element %d does not belong to board %s", e.ID, boardID)
			}
			if err != nil {
				return err
			}
			el := before.Clone()
			el.ZIndex = e.ZIndex
			if err := r.write(ctx, tx, boardID, el); err != nil {
				return err
			}
			if err := r.record(ctx, tx, boardID, &el.ID, domain.EventReordered, before, el); err != nil {
				return err
			}
			out = append(out, el)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Group creates a group and assigns every listed element to it.
func (r *Repo) Group(ctx context.Context, boardID string, req domain.GroupRequest) (domain.GroupResult, error) {
	if len(req.ElementIDs) == 0 {
		return domain.GroupResult{}, validation("no elements to group")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = DefaultGroupName
	}
	res := domain.GroupResult{GroupID: domain.NewGroupID()}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		members := make([]domain.Element, 0, len(req.ElementIDs))
		for _, id := range req.ElementIDs {
			el, err := r.get(ctx, tx, boardID, id)
			if errors.Is(err, ErrNotFound) {
				return validation("element %d does not belong to board %s", id, boardID)
			}
			if err != nil {
				return err
			}
			members = append(members, el)
		}
		if _, err := tx.ExecContext(ctx, r.q(insertGroupSQL), res.GroupID, boardID, name, now()); err != nil {
			return fmt.Errorf("insert group: %w", err)
		}
		for _, before := range members {
			el := before.Clone()
			g := res.GroupID
			el.GroupID = &g
			if err := r.write(ctx, tx, boardID, el); err != nil {
				return err
			}
			if err := r.record(ctx, tx, boardID, &el.ID, domain.EventGrouped, before, el); err != nil {
				return err
			}
			res.ElementIDs = append(res.ElementIDs, el.ID)
		}
		return nil
	})
	if err != nil {
		return domain.GroupResult{}, err
	}
	return res, nil
}

// Ungroup detaches every member of the group and deletes the group. It returns the former members.
func (r *Repo) Ungroup(ctx context.Context, boardID, groupID string) ([]domain.ElementID, error) {
	if strings.TrimSpace(groupID) == "" {
		return nil, validation("group id is required")
	}
	var ids []domain.ElementID
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := r.requireGroup(ctx, tx, boardID, groupID); err != nil {
			return err
		}
		members, err := r.queryElements(ctx, tx, groupMembersSQL, boardID, groupID)
		if err != nil {
			return err
		}
		for _, before := range members {
			el := before.Clone()
			el.GroupID = nil
			if err := r.write(ctx, tx, boardID, el); err != nil {
				return err
			}
			if err := r.record(ctx, tx, boardID, &el.ID, domain.EventUngrouped, before, el); err != nil {
				return err
			}
			ids = append(ids, el.ID)
		}
		if _, err := tx.ExecContext(ctx, r.q(deleteGroupSQL), boardID, groupID); err != nil {
			return fmt.Errorf("delete group: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Copy duplicates the listed elements shifted by the offset. Copies sit one layer above their
// original, keep its group and start unlocked.
func (r *Repo) Copy(ctx context.Context, boardID string, req domain.CopyRequest) (domain.CopyResult, error) {
	if len(req.ElementIDs) == 0 {
		return domain.CopyResult{}, validation("no elements to copy")
	}
	var res domain.CopyResult
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range req.ElementIDs {
			src, err := r.get(ctx, tx, boardID, id)
			if errors.Is(err, ErrNotFound) {
				return validation("element %d does not belong to board %s", id, boardID)
			}
			if err != nil {
				return err
			}
			cp := src.Clone()
			cp.X += req.OffsetX
			cp.Y += req.OffsetY
			cp.ZIndex++
			cp.LockedPosition = false
			cp.LockedEditing = false
			newID, err := r.insert(ctx, tx, boardID, cp)
			if err != nil {
				return err
			}
			cp.ID = newID
			if err := r.record(ctx, tx, boardID, &cp.ID, domain.EventCopied, src, cp); err != nil {
				return err
			}
			res.Copies = append(res.Copies, domain.CopyPair{OriginalID: src.ID, CopyID: newID})
		}
		return nil
	})
	if err != nil {
		return domain.CopyResult{}, err
	}
	return res, nil
}

// History returns the newest history events of a board, at most limit (100 when limit <= 0).
func (r *Repo) History(ctx context.Context, boardID string, limit int) ([]domain.HistoryEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, r.q(selectHistorySQL), boardID, limit)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.HistoryEvent
	for rows.Next() {
		var (
			ev            domain.HistoryEvent
			elementID     sql.NullInt64
			before, after sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.BoardID, &elementID, &ev.Type, &before, &after, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if elementID.Valid {
			id := domain.ElementID(elementID.Int64)
			ev.ElementID = &id
		}
		if before.Valid {
			ev.Before = json.RawMessage(before.String)
		}
		if after.Valid {
			ev.After = json.RawMessage(after.String)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// --- row helpers ---

func (r *Repo) get(ctx context.Context, q querier, boardID string, id domain.ElementID) (domain.Element, error) {
	el, err := scanElement(q.QueryRowContext(ctx, r.q(selectElementSQL), boardID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Element{}, fmt.Errorf("%w: %d on board %s", ErrNotFound, id, boardID)
	}
	if err != nil {
		return domain.Element{}, fmt.Errorf("select element %d: %w", id, err)
	}
	return el, nil
}

func (r *Repo) queryElements(ctx context.Context, q querier, query string, args ...any) ([]domain.Element, error) {
	rows, err := q.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("select elements: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := []domain.Element{}
	for rows.Next() {
		el, err := scanElement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, el)
	}
	return out, rows.Err()
}

func (r *Repo) insert(ctx context.Context, tx *sql.Tx, boardID string, el domain.Element) (domain.ElementID, error) {
	ts := now()
	var id int64
	err := tx.QueryRowContext(ctx, r.q(insertElementSQL),
		boardID, string(el.Type), el.X, el.Y, el.Width, el.Height, el.Rotation, el.ZIndex,
		nullString(el.GroupID), el.LockedPosition, el.LockedEditing, nullInt(el.MediaID), properties(el.Properties),
		ts, ts,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert element: %w", err)
	}
	return domain.ElementID(id), nil
}

func (r *Repo) write(ctx context.Context, tx *sql.Tx, boardID string, el domain.Element) error {
	res, err := tx.ExecContext(ctx, r.q(updateElementSQL),
		string(el.Type), el.X, el.Y, el.Width, el.Height, el.Rotation, el.ZIndex,
		nullString(el.GroupID), el.LockedPosition, el.LockedEditing, nullInt(el.MediaID), properties(el.Properties),
		now(), boardID, int64(el.ID),
	)
	if err != nil {
		return fmt.Errorf("update element %d: %w", el.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d on board %s", ErrNotFound, el.ID, boardID)
	}
	return nil
}

func (r *Repo) requireGroup(ctx context.Context, q querier, boardID, groupID string) error {
	var n int
	if err := q.QueryRowContext(ctx, r.q(groupExistsSQL), boardID, groupID).Scan(&n); err != nil {
		return fmt.Errorf("select group: %w", err)
	}
	if n == 0 {
		return validation("group %s does not exist on board %s", groupID, boardID)
	}
	return nil
}

func (r *Repo) record(ctx context.Context, tx *sql.Tx, boardID string, id *domain.ElementID, event string, before, after any) error {
	var elementID any
	if id != nil {
		elementID = int64(*id)
	}
	b, err := historyJSON(before)
	if err != nil {
		return err
	}
	a, err := historyJSON(after)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, r.q(insertHistorySQL), boardID, elementID, event, b, a, now()); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func historyJSON(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal history payload: %w", err)
	}
	return string(b), nil
}

func scanElement(s rowScanner) (domain.Element, error) {
	var (
		el       domain.Element
		id       int64
		typ      string
		group    sql.NullString
		media    sql.NullInt64
		props    string
		zIndex   int64
		lockPos  bool
		lockEdit bool
	)
	if err := s.Scan(&id, &typ, &el.X, &el.Y, &el.Width, &el.Height, &el.Rotation, &zIndex,
		&group, &lockPos, &lockEdit, &media, &props); err != nil {
		return domain.Element{}, err
	}
	el.ID = domain.ElementID(id)
	el.Type = domain.ElementType(typ)
	el.ZIndex = int(zIndex)
	el.LockedPosition = lockPos
	el.LockedEditing = lockEdit
	if group.Valid {
		g := group.String
		el.GroupID = &g
	}
	if media.Valid {
		m := media.Int64
		el.MediaID = &m
	}
	if props != "" {
		el.Properties = json.RawMessage(props)
	}
	return el, nil
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func nullString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func properties(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}
