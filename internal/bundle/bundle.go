/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package bundle packs a board into a single zip: its snapshot, rendered previews
// and a small manifest for human inspection.
package bundle

import (
	"archive/zip"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"boardcanvas/internal/export"
	applog "boardcanvas/internal/log"
	"boardcanvas/internal/storage"
)

// Entry names inside a bundle.
const (
	ManifestName = "bundle.manifest.txt"
	SnapshotName = "board.json"
	SVGName      = "board.svg"
	PNGName      = "board.png"
)

// maxSnapshotBytes guards Import against oversized entries.
const maxSnapshotBytes = 64 << 20

var ErrNoSnapshot = errors.New("bundle has no " + SnapshotName)

// Export writes snap and its previews to destZipPath. Previews are skipped for empty boards.
func Export(snap storage.Snapshot, destZipPath string) error {
	l := applog.WithOperation(applog.WithComponent("bundle"), "export").With(slog.String("board", snap.BoardID))
	if strings.TrimSpace(destZipPath) == "" {
		return errors.New("destZipPath is required")
	}
	data, err := storage.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(destZipPath), 0o755); err != nil {
		return fmt.Errorf("ensure zip dir: %w", err)
	}
	// On Windows, remove destination if present before create
	_ = os.Remove(destZipPath)

	zf, err := os.Create(destZipPath)
	if err != nil {
		return fmt.Errorf("create zip: %w", err)
	}
	zw := zip.NewWriter(zf)
	if err := writeEntries(zw, snap, data); err != nil {
		_ = zw.Close()
		_ = zf.Close()
		l.Error("bundle build failed", slog.Any("err", err))
		return fmt.Errorf("build zip: %w", err)
	}
	if err := zw.Close(); err != nil {
		_ = zf.Close()
		return fmt.Errorf("finish zip: %w", err)
	}
	if err := zf.Close(); err != nil {
		return err
	}
	l.Info("bundle exported", slog.Int("elements", len(snap.Elements)), slog.String("zip", destZipPath))
	return nil
}

func writeEntries(zw *zip.Writer, snap storage.Snapshot, data []byte) error {
	manifest := fmt.Sprintf("Board Canvas Bundle\nBoard: %s\nElements: %d\nCreated: %s\n",
		snap.BoardID, len(snap.Elements), time.Now().Format(time.RFC3339))
	if err := writeEntry(zw, ManifestName, []byte(manifest)); err != nil {
		return err
	}
	if err := writeEntry(zw, SnapshotName, data); err != nil {
		return err
	}
	if len(snap.Elements) == 0 {
		return nil
	}
	svg, err := export.RenderSVG(snap.Elements, export.SVGOptions{})
	if err != nil {
		return err
	}
	if err := writeEntry(zw, SVGName, svg); err != nil {
		return err
	}
	img, err := export.RenderImage(snap.Elements, export.PNGOptions{Scale: 1})
	if err != nil {
		return err
	}
	w, err := zw.Create(PNGName)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Import reads and validates the snapshot stored in a bundle.
func Import(zipPath string) (storage.Snapshot, error) {
	l := applog.WithOperation(applog.WithComponent("bundle"), "import").With(slog.String("zip", zipPath))
	if strings.TrimSpace(zipPath) == "" {
		return storage.Snapshot{}, errors.New("zipPath is required")
	}
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("open bundle: %w", err)
	}
	defer func() { _ = r.Close() }()

	for _, f := range r.File {
		if f.Name != SnapshotName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return storage.Snapshot{}, err
		}
		data, err := io.ReadAll(io.LimitReader(rc, maxSnapshotBytes+1))
		_ = rc.Close()
		if err != nil {
			return storage.Snapshot{}, err
		}
		if len(data) > maxSnapshotBytes {
			return storage.Snapshot{}, fmt.Errorf("%s exceeds %d bytes", SnapshotName, maxSnapshotBytes)
		}
		snap, err := storage.DecodeSnapshot(data)
		if err != nil {
			l.Error("invalid snapshot in bundle", slog.Any("err", err))
			return storage.Snapshot{}, err
		}
		l.Info("bundle imported", slog.String("board", snap.BoardID), slog.Int("elements", len(snap.Elements)))
		return snap, nil
	}
	return storage.Snapshot{}, ErrNoSnapshot
}

// Contents lists the entry names of a bundle.
func Contents(zipPath string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names, nil
}
