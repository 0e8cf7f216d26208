/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "encoding/json"

// Draft is a create request. Optional fields fall back to store defaults.
type Draft struct {
	Type       ElementType     `json:"type"`
	X          float64         `json:"x"`
	Y          float64         `json:"y"`
	Width      float64         `json:"width"`
	Height     float64         `json:"height"`
	Rotation   *float64        `json:"rotation,omitempty"`
	ZIndex     *int            `json:"zIndex,omitempty"`
	GroupID    *string         `json:"groupId,omitempty"`
	MediaID    *int64          `json:"mediaId,omitempty"`
	Properties json.RawMessage `json:"properties,omitempty"`
}

// Patch is a partial update. A non-nil empty GroupID removes the element from its group.
type Patch struct {
	X              *float64        `json:"x,omitempty"`
	Y              *float64        `json:"y,omitempty"`
	Width          *float64        `json:"width,omitempty"`
	Height         *float64        `json:"height,omitempty"`
	Rotation       *float64        `json:"rotation,omitempty"`
	ZIndex         *int            `json:"zIndex,omitempty"`
	GroupID        *string         `json:"groupId,omitempty"`
	LockedPosition *bool           `json:"lockedPosition,omitempty"`
	LockedEditing  *bool           `json:"lockedEditing,omitempty"`
	MediaID        *int64          `json:"mediaId,omitempty"`
	Properties     json.RawMessage `json:"properties,omitempty"`
}

type LockRequest struct {
	LockedPosition *bool `json:"lockedPosition,omitempty"`
	LockedEditing  *bool `json:"lockedEditing,omitempty"`
}

type ReorderEntry struct {
	ID     ElementID `json:"id"`
	ZIndex int       `json:"zIndex"`
}

type ReorderRequest struct {
	Orders []ReorderEntry `json:"orders"`
}

type GroupRequest struct {
	ElementIDs []ElementID `json:"elementIds"`
	Name       string      `json:"name,omitempty"`
}

type GroupResult struct {
	GroupID    string      `json:"groupId"`
	ElementIDs []ElementID `json:"elementIds"`
}

type UngroupRequest struct {
	GroupID string `json:"groupId"`
}

type CopyRequest struct {
	ElementIDs []ElementID `json:"elementIds"`
	OffsetX    float64     `json:"offsetX"`
	OffsetY    float64     `json:"offsetY"`
}

// CopyPair maps an original element to the copy created from it.
type CopyPair struct {
	OriginalID ElementID `json:"originalId"`
	CopyID     ElementID `json:"copyId"`
}

type CopyResult struct {
	Copies []CopyPair `json:"copies"`
}

// HistoryEvent is one audit row written for every element mutation.
type HistoryEvent struct {
	ID        int64           `json:"id"`
	BoardID   string          `json:"boardId"`
	ElementID *ElementID      `json:"elementId,omitempty"`
	Type      string          `json:"eventType"`
	Before    json.RawMessage `json:"before,omitempty"`
	After     json.RawMessage `json:"after,omitempty"`
	CreatedAt string          `json:"createdAt"`
}

// History event types.
const (
	EventCreated   = "ELEMENT_CREATED"
	EventUpdated   = "ELEMENT_UPDATED"
	EventDeleted   = "ELEMENT_DELETED"
	EventGrouped   = "ELEMENT_GROUPED"
	EventUngrouped = "ELEMENT_UNGROUPED"
	EventReordered = "ELEMENT_REORDERED"
	EventCopied    = "ELEMENT_COPIED"
)
