/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"boardcanvas/internal/backend"
	"boardcanvas/internal/bundle"
	"boardcanvas/internal/config"
	"boardcanvas/internal/crash"
	"boardcanvas/internal/domain"
	"boardcanvas/internal/export"
	"boardcanvas/internal/script"
	"boardcanvas/internal/session"
	"boardcanvas/internal/storage"
	"boardcanvas/internal/textlayout"
)

// cli carries what every board command needs.
type cli struct {
	cfg   config.AppConfig
	token string
	log   *slog.Logger
	crash *crash.Board
}

// open loads a board and registers it for crash autosave.
func (c *cli) open(ctx context.Context, board string) (*session.Session, error) {
	s, err := session.Open(ctx, c.cfg, c.token, board)
	if err != nil {
		return nil, err
	}
	c.crash.BoardID = s.BoardID
	c.crash.Elements = s.Engine.Elements
	return s, nil
}

func (c *cli) closeSession(s *session.Session) {
	if err := s.Close(); err != nil {
		c.log.Warn("close board failed", slog.Any("err", err))
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) list(ctx context.Context, board string) error {
	s, err := c.open(ctx, board)
	if err != nil {
		return err
	}
	defer c.closeSession(s)
	return printJSON(s.Engine.PaintOrder())
}

type historian interface {
	History(ctx context.Context, boardID string, limit int) ([]domain.HistoryEvent, error)
}

func (c *cli) history(ctx context.Context, board string, limit int) error {
	id, err := domain.ParseBoardID(board)
	if err != nil {
		return err
	}
	store, closeStore, err := session.OpenStore(ctx, c.cfg, c.token)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()
	h, ok := store.(historian)
	if !ok {
		return errors.New("store does not keep history")
	}
	events, err := h.History(ctx, id, limit)
	if err != nil {
		return err
	}
	return printJSON(events)
}

func (c *cli) export(ctx context.Context, kind, board, out string) error {
	s, err := c.open(ctx, board)
	if err != nil {
		return err
	}
	defer c.closeSession(s)
	els := s.Engine.Elements()
	l := c.log.With(slog.String("board", s.BoardID), slog.String("kind", kind))
	font, ferr := textlayout.Resolve(c.cfg.Export.LabelFont, c.cfg.Export.LabelFontSize)
	if ferr != nil {
		l.Warn("label font unavailable, using built-in face", slog.Any("err", ferr))
	}

	switch strings.ToLower(kind) {
	case export.FormatPDF:
		err = export.ExportPDF(els, out, export.PDFOptions{Title: "Board " + s.BoardID})
	case export.FormatPNG:
		err = export.ExportPNG(els, out, export.PNGOptions{Scale: 2, Font: font})
	case export.FormatSVG:
		err = export.ExportSVG(els, out, export.SVGOptions{})
	case string(export.PresetWeb), string(export.PresetPrint):
		var paths []string
		paths, err = export.BatchExport(els, export.BatchOptions{
			Preset: export.PresetName(strings.ToLower(kind)),
			OutDir: out,
			Name:   "board-" + s.BoardID[:8],
			Font:   font,
		})
		for _, p := range paths {
			fmt.Println("Wrote", p)
		}
		if err == nil {
			l.Info("preset exported", slog.Int("files", len(paths)))
		}
		return err
	default:
		return fmt.Errorf("unknown export format %q (pdf, png, svg, web, print)", kind)
	}
	if err != nil {
		return err
	}
	l.Info("exported", slog.String("out", out))
	fmt.Println("Wrote", out)
	return nil
}

func (c *cli) snapshot(ctx context.Context, action, board, file string) error {
	s, err := c.open(ctx, board)
	if err != nil {
		return err
	}
	defer c.closeSession(s)
	switch action {
	case "save":
		if err := storage.SaveSnapshot(file, storage.NewSnapshot(s.BoardID, s.Engine.Elements())); err != nil {
			return err
		}
		fmt.Printf("Saved %d elements to %s (previous version kept under %s)\n", s.Engine.Len(), file, storage.BackupsDirName)
		return nil
	case "load":
		snap, err := storage.LoadSnapshot(file)
		if err != nil {
			return err
		}
		n, err := s.Restore(ctx, snap)
		if err != nil {
			return err
		}
		fmt.Printf("Restored %d elements into board %s\n", n, s.BoardID)
		return nil
	}
	return fmt.Errorf("unknown snapshot action %q (save, load)", action)
}

func (c *cli) bundle(ctx context.Context, action, board, file string) error {
	s, err := c.open(ctx, board)
	if err != nil {
		return err
	}
	defer c.closeSession(s)
	switch action {
	case "export":
		if err := bundle.Export(storage.NewSnapshot(s.BoardID, s.Engine.Elements()), file); err != nil {
			return err
		}
		fmt.Println("Wrote", file)
		return nil
	case "import":
		snap, err := bundle.Import(file)
		if err != nil {
			return err
		}
		n, err := s.Restore(ctx, snap)
		if err != nil {
			return err
		}
		fmt.Printf("Restored %d elements into board %s\n", n, s.BoardID)
		return nil
	}
	return fmt.Errorf("unknown bundle action %q (export, import)", action)
}

// replay feeds a recorded script through the engine. Store writes happen as in the UI.
func (c *cli) replay(ctx context.Context, board, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sc, errs := script.Parse(data)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Println(path+":", e.Error())
		}
		return fmt.Errorf("script has %d errors", len(errs))
	}
	s, err := c.open(ctx, board)
	if err != nil {
		return err
	}
	defer c.closeSession(s)
	rep := script.Run(s.Engine, sc)
	out, err := yaml.Marshal(script.Summarize(s.Engine, rep))
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}

func (c *cli) tokenCmd(ctx context.Context, args []string) error {
	switch args[0] {
	case "set":
		if len(args) < 2 {
			return errors.New("token set requires <token>")
		}
		if err := config.SetToken(strings.TrimSpace(args[1])); err != nil {
			return err
		}
		fmt.Println("Token stored in the OS keyring.")
	case "clear":
		if err := config.ClearToken(); err != nil {
			return err
		}
		fmt.Println("Token removed.")
	case "issue":
		subject := ""
		if len(args) >= 2 {
			subject = args[1]
		}
		resp, err := backend.NewClientFromConfig(c.cfg.Backend, "").IssueToken(ctx, subject, 0)
		if err != nil {
			return err
		}
		if err := config.SetToken(resp.Token); err != nil {
			return err
		}
		fmt.Println("Token issued and stored; expires at", resp.ExpiresAt)
	default:
		return fmt.Errorf("unknown token action %q (set, clear, issue)", args[0])
	}
	return nil
}
