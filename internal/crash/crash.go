/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns panics into a report file plus an offline snapshot of the open board.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"boardcanvas/internal/domain"
	applog "boardcanvas/internal/log"
	"boardcanvas/internal/storage"
	"boardcanvas/internal/telemetry"
	"boardcanvas/internal/version"
)

// exitFn is replaced in tests.
var exitFn = os.Exit

// Board describes what to rescue when the process panics. A nil Board only writes the report.
type Board struct {
	Dir      string // reports and snapshots go here; the temp dir when empty
	BoardID  string
	Elements func() []domain.Element
}

func (b *Board) dir() string {
	if b == nil || b.Dir == "" {
		return os.TempDir()
	}
	return b.Dir
}

// Recover captures a panic, logs it with the stack, writes a crash report and an
// autosave snapshot of the board, then exits with code 2.
//
// Usage: defer crash.Recover(board)
func Recover(b *Board) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(b, r, stack)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
	}
	if b != nil && b.Elements != nil {
		if path, err := autosave(b); err != nil {
			l.Error("autosave crash snapshot failed", slog.Any("err", err))
		} else {
			l.Info("autosave crash snapshot written", slog.String("path", path))
		}
	}
	_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\n", version.String())
	exitFn(2)
}

func stamp() string { return time.Now().Format("20060102-150405") }

func autosave(b *Board) (path string, err error) {
	// the element source may be the thing that panicked
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("collect elements: %v", r)
		}
	}()
	path = filepath.Join(b.dir(), fmt.Sprintf("crash-%s-%s.json", b.BoardID, stamp()))
	return path, storage.SaveSnapshot(path, storage.NewSnapshot(b.BoardID, b.Elements()))
}

func writeReport(b *Board, panicVal any, stack []byte) (string, error) {
	dir := b.dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", stamp()))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Board Canvas Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if b != nil && b.BoardID != "" {
		_, _ = fmt.Fprintf(&buf, "Board: %s\n", b.BoardID)
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()
	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()

	// opt-in upload; a no-op unless configured
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
