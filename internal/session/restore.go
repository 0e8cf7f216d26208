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
	"fmt"
	"log/slog"

	"boardcanvas/internal/domain"
	applog "boardcanvas/internal/log"
	"boardcanvas/internal/storage"
)

// Grouper is implemented by stores that manage element groups.
type Grouper interface {
	Group(ctx context.Context, boardID string, req domain.GroupRequest) (domain.GroupResult, error)
}

// Locker is implemented by stores that persist element locks.
type Locker interface {
	UpdateLocks(ctx context.Context, boardID string, id domain.ElementID, lr domain.LockRequest) (domain.Element, error)
}

// Restore creates every snapshot element on the session's board with fresh ids, in
// paint order. Groups and locks are re-applied when the store supports them. The engine
// is reloaded from the store afterwards. It returns the number of elements created.
func (s *Session) Restore(ctx context.Context, snap storage.Snapshot) (int, error) {
	l := applog.WithOperation(applog.WithComponent("session"), "restore").With(
		slog.String("board", s.BoardID), slog.String("from", snap.BoardID))
	els := make([]domain.Element, len(snap.Elements))
	copy(els, snap.Elements)
	domain.SortByZ(els)

	groups := map[string][]domain.ElementID{}
	var order []string
	created := 0
	for _, el := range els {
		d := el.Draft()
		d.GroupID = nil
		got, err := s.Store.Create(ctx, s.BoardID, d)
		if err != nil {
			l.Error("create failed", slog.Int64("source", int64(el.ID)), slog.Any("err", err))
			return created, fmt.Errorf("restore element %d: %w", el.ID, err)
		}
		created++
		if el.GroupID != nil && *el.GroupID != "" {
			if _, seen := groups[*el.GroupID]; !seen {
				order = append(order, *el.GroupID)
			}
			groups[*el.GroupID] = append(groups[*el.GroupID], got.ID)
		}
		if el.LockedPosition || el.LockedEditing {
			if lk, ok := s.Store.(Locker); ok {
				lp, le := el.LockedPosition, el.LockedEditing
				if _, err := lk.UpdateLocks(ctx, s.BoardID, got.ID, domain.LockRequest{LockedPosition: &lp, LockedEditing: &le}); err != nil {
					return created, fmt.Errorf("restore locks of %d: %w", el.ID, err)
				}
			}
		}
	}
	if g, ok := s.Store.(Grouper); ok {
		for _, gid := range order {
			if _, err := g.Group(ctx, s.BoardID, domain.GroupRequest{ElementIDs: groups[gid]}); err != nil {
				return created, fmt.Errorf("restore group %s: %w", gid, err)
			}
		}
	} else if len(order) > 0 {
		l.Warn("store does not support groups; restored ungrouped", slog.Int("groups", len(order)))
	}
	l.Info("snapshot restored", slog.Int("elements", created), slog.Int("groups", len(order)))
	return created, s.Reload(ctx)
}
