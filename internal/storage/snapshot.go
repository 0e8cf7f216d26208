/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"boardcanvas/internal/domain"
)

// SnapshotVersion is the current snapshot file format.
const SnapshotVersion = 1

// BackupsDirName is the folder next to a snapshot that keeps its previous versions.
const BackupsDirName = "backups"

//go:embed schema/board_snapshot.schema.json
var snapshotSchema []byte

// Snapshot is an offline copy of a board's elements.
type Snapshot struct {
	Version  int              `json:"version"`
	BoardID  string           `json:"boardId"`
	SavedAt  time.Time        `json:"savedAt"`
	Elements []domain.Element `json:"elements"`
}

// NewSnapshot captures elements in paint order.
func NewSnapshot(boardID string, elements []domain.Element) Snapshot {
	els := make([]domain.Element, len(elements))
	for i, e := range elements {
		els[i] = e.Clone()
	}
	domain.SortByZ(els)
	return Snapshot{Version: SnapshotVersion, BoardID: boardID, SavedAt: time.Now().UTC(), Elements: els}
}

// ValidateSnapshot checks raw snapshot JSON against the embedded schema.
func ValidateSnapshot(data []byte) error {
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(snapshotSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validate: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

// SaveSnapshot writes snap to path. An existing file is first copied to a timestamped
// backup; the new content goes to a temp file that is synced and renamed over path.
func SaveSnapshot(path string, snap Snapshot) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("snapshot path is required")
	}
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure snapshot dir: %w", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		bdir := filepath.Join(dir, BackupsDirName)
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
		if cerr := copyFile(path, bpath); cerr != nil {
			return fmt.Errorf("backup current snapshot: %w", cerr)
		}
	}

	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp snapshot: %w", werr)
	}
	// Windows refuses to rename over an existing file
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace snapshot: %w", rerr)
	}
	return nil
}

// LoadSnapshot reads and validates the snapshot at path. When the file is missing or
// corrupt the newest backup is used instead.
func LoadSnapshot(path string) (Snapshot, error) {
	snap, err := readSnapshot(path)
	if err == nil {
		return snap, nil
	}
	backup, berr := latestBackup(path)
	if berr != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: %w; backup attempt: %v", err, berr)
	}
	snap, berr = readSnapshot(backup)
	if berr != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: %w; backup attempt: %v", err, berr)
	}
	return snap, nil
}

// Backups lists the backup files of the snapshot at path, oldest first.
func Backups(path string) ([]string, error) {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(path) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	// the timestamp in the name sorts lexicographically
	sort.Strings(out)
	return out, nil
}

func latestBackup(path string) (string, error) {
	list, err := Backups(path)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "", errors.New("no backups found")
	}
	return list[len(list)-1], nil
}

func readSnapshot(path string) (Snapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	return DecodeSnapshot(b)
}

// EncodeSnapshot fills in defaults and returns the validated, indented JSON form.
func EncodeSnapshot(snap Snapshot) ([]byte, error) {
	if snap.Version == 0 {
		snap.Version = SnapshotVersion
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now().UTC()
	}
	if snap.Elements == nil {
		snap.Elements = []domain.Element{}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	data = append(data, '\n')
	if err := ValidateSnapshot(data); err != nil {
		return nil, err
	}
	return data, nil
}

// DecodeSnapshot validates and parses snapshot JSON.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	if err := ValidateSnapshot(data); err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot: %w", err)
	}
	return snap, nil
}
