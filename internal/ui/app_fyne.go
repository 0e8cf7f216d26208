//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"boardcanvas/internal/bundle"
	"boardcanvas/internal/crash"
	"boardcanvas/internal/domain"
	"boardcanvas/internal/engine"
	"boardcanvas/internal/export"
	applog "boardcanvas/internal/log"
	"boardcanvas/internal/session"
	"boardcanvas/internal/storage"
	"boardcanvas/internal/telemetry"
	"boardcanvas/internal/version"
)

// host owns the window and the currently opened board.
type host struct {
	app   fyne.App
	win   fyne.Window
	opts  Options
	log   *slog.Logger
	crash *crash.Board

	sess   *session.Session
	canvas *BoardCanvas
	stop   context.CancelFunc

	toolbar fyne.CanvasObject
	tools   *widget.RadioGroup
	status  *widget.Label
}

// Run starts the desktop UI and blocks until the window closes.
func Run(opts Options) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	fyneApp := app.NewWithID("boardcanvas")
	prefs := fyneApp.Preferences()
	boardID := strings.TrimSpace(opts.BoardID)
	if boardID == "" {
		if recent := loadRecentBoards(prefs); len(recent) > 0 {
			boardID = recent[0]
		} else {
			boardID = domain.NewBoardID()
		}
	}

	h := &host{app: fyneApp, opts: opts, log: l, status: widget.NewLabel("Ready")}
	h.crash = &crash.Board{Elements: func() []domain.Element {
		if h.sess == nil {
			return nil
		}
		return h.sess.Engine.Elements()
	}}
	defer crash.Recover(h.crash)

	w := fyneApp.NewWindow("Board Canvas")
	h.win = w
	// Restore window size from preferences (with sane minimums)
	winW := max(prefs.IntWithFallback("window.width", 1200), 800)
	winH := max(prefs.IntWithFallback("window.height", 800), 600)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	h.toolbar = h.buildToolbar()
	w.SetMainMenu(h.buildMenu())
	h.bindKeys()

	if err := h.open(boardID); err != nil {
		l.Error("open board failed", slog.String("board", boardID), slog.Any("err", err))
		return err
	}

	// Persist preferences on close
	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		if err := h.closeSession(); err != nil {
			l.Warn("close board failed", slog.Any("err", err))
		}
		w.Close()
	})

	w.ShowAndRun()
	return h.closeSession()
}

// open loads boardID and swaps it into the window. The previous board stays open on failure.
func (h *host) open(boardID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.opts.Config.Backend.Timeout())
	defer cancel()
	sess, err := session.Open(ctx, h.opts.Config, h.opts.Token, boardID)
	if err != nil {
		return err
	}
	if err := h.closeSession(); err != nil {
		h.log.Warn("close previous board failed", slog.Any("err", err))
	}
	h.sess = sess
	h.crash.BoardID = sess.BoardID
	h.canvas = NewBoardCanvas(sess.Engine)
	h.canvas.OnChanged = h.updateStatus
	h.tools.SetSelected(sess.Engine.Tool().String())

	drainCtx, stop := context.WithCancel(context.Background())
	h.stop = stop
	go drain(drainCtx, sess.Engine, h.canvas, h.updateStatus)

	h.win.SetTitle("Board Canvas - " + sess.BoardID)
	h.win.SetContent(container.NewBorder(h.toolbar, h.status, nil, nil, h.canvas))
	prefs := h.app.Preferences()
	saveRecentBoards(prefs, pushRecent(loadRecentBoards(prefs), sess.BoardID, recentMax))
	h.updateStatus()
	telemetry.Event("board_opened", map[string]any{"elements": sess.Engine.Len(), "mode": h.opts.Config.Store.Mode})
	h.log.Info("board opened", slog.String("board", sess.BoardID), slog.Int("elements", sess.Engine.Len()))
	return nil
}

// drain applies engine continuations on the UI thread whenever store calls finish.
func drain(ctx context.Context, e *engine.Engine, c *BoardCanvas, after func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.Ready():
			fyne.Do(func() {
				if ctx.Err() != nil {
					return
				}
				if e.ApplyPending() > 0 {
					c.Refresh()
					after()
				}
			})
		}
	}
}

func (h *host) closeSession() error {
	if h.stop != nil {
		h.stop()
		h.stop = nil
	}
	if h.sess == nil {
		return nil
	}
	s := h.sess
	h.sess = nil
	return s.Close()
}

func (h *host) updateStatus() {
	if h.sess == nil {
		h.status.SetText("No board")
		return
	}
	h.status.SetText(statusText(h.sess.Engine))
}

func (h *host) buildToolbar() fyne.CanvasObject {
	h.tools = widget.NewRadioGroup([]string{engine.ToolSelect.String(), engine.ToolPan.String()}, func(s string) {
		t, err := engine.ParseTool(s)
		if err != nil || h.canvas == nil {
			return
		}
		if h.canvas.Engine().Tool() != t {
			h.canvas.SetTool(t)
		}
	})
	h.tools.Horizontal = true
	h.tools.Required = true
	zoomIn := widget.NewButtonWithIcon("", theme.ZoomInIcon(), func() { h.withCanvas(func(c *BoardCanvas) { c.ZoomStep(1) }) })
	zoomOut := widget.NewButtonWithIcon("", theme.ZoomOutIcon(), func() { h.withCanvas(func(c *BoardCanvas) { c.ZoomStep(-1) }) })
	reload := widget.NewButtonWithIcon("", theme.ViewRefreshIcon(), h.reload)
	return container.NewHBox(widget.NewLabel("Tool:"), h.tools, widget.NewSeparator(), zoomOut, zoomIn, reload)
}

func (h *host) withCanvas(fn func(c *BoardCanvas)) {
	if h.canvas != nil {
		fn(h.canvas)
	}
}

func (h *host) setTool(t engine.Tool) {
	h.tools.SetSelected(t.String())
}

func (h *host) reload() {
	if h.sess == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.opts.Config.Backend.Timeout())
	defer cancel()
	if err := h.sess.Reload(ctx); err != nil {
		h.log.Error("reload failed", slog.Any("err", err))
		dialog.ShowError(err, h.win)
		return
	}
	h.canvas.Refresh()
	h.updateStatus()
}

func (h *host) bindKeys() {
	c := h.win.Canvas()
	c.SetOnTypedKey(func(ev *fyne.KeyEvent) {
		h.withCanvas(func(bc *BoardCanvas) { bc.KeyDown(ev.Name) })
	})
	action := func(a engine.MenuAction) func(fyne.Shortcut) {
		return func(fyne.Shortcut) { h.withCanvas(func(bc *BoardCanvas) { bc.RunAction(a) }) }
	}
	c.AddShortcut(&fyne.ShortcutCopy{}, action(engine.MenuCopy))
	c.AddShortcut(&fyne.ShortcutCut{}, action(engine.MenuCut))
	c.AddShortcut(&fyne.ShortcutPaste{}, action(engine.MenuPaste))
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyD, Modifier: fyne.KeyModifierShortcutDefault}, action(engine.MenuDuplicate))
	c.AddShortcut(&fyne.ShortcutSelectAll{}, func(fyne.Shortcut) { h.selectAll() })
}

func (h *host) selectAll() {
	h.withCanvas(func(bc *BoardCanvas) {
		bc.Engine().SelectAll()
		bc.changed()
	})
}

func (h *host) buildMenu() *fyne.MainMenu {
	openItem := fyne.NewMenuItem("Open Board…", h.showOpenDialog)
	newItem := fyne.NewMenuItem("New Board", func() {
		if err := h.open(domain.NewBoardID()); err != nil {
			dialog.ShowError(err, h.win)
		}
	})
	reloadItem := fyne.NewMenuItem("Reload", h.reload)
	snapItem := fyne.NewMenuItem("Save Snapshot…", func() {
		h.saveAs("board.json", ".json", func(path string, els []domain.Element) error {
			return storage.SaveSnapshot(path, storage.NewSnapshot(h.sess.BoardID, els))
		})
	})
	bundleItem := fyne.NewMenuItem("Export Bundle…", func() {
		h.saveAs("board.zip", ".zip", func(path string, els []domain.Element) error {
			return bundle.Export(storage.NewSnapshot(h.sess.BoardID, els), path)
		})
	})
	fileMenu := fyne.NewMenu("File", openItem, newItem, reloadItem, fyne.NewMenuItemSeparator(), snapItem, bundleItem)

	edit := make([]*fyne.MenuItem, 0, len(engine.MenuActions)+2)
	edit = append(edit, fyne.NewMenuItem("Select All", h.selectAll), fyne.NewMenuItemSeparator())
	for _, a := range engine.MenuActions {
		a := a
		edit = append(edit, fyne.NewMenuItem(a.String(), func() {
			h.withCanvas(func(bc *BoardCanvas) { bc.RunAction(a) })
		}))
	}
	editMenu := fyne.NewMenu("Edit", edit...)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Select Tool", func() { h.setTool(engine.ToolSelect) }),
		fyne.NewMenuItem("Pan Tool", func() { h.setTool(engine.ToolPan) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Zoom In", func() { h.withCanvas(func(c *BoardCanvas) { c.ZoomStep(1) }) }),
		fyne.NewMenuItem("Zoom Out", func() { h.withCanvas(func(c *BoardCanvas) { c.ZoomStep(-1) }) }),
	)

	exportItem := func(label, ext string) *fyne.MenuItem {
		return fyne.NewMenuItem(label, func() {
			h.saveAs("board"+ext, ext, func(path string, els []domain.Element) error {
				return export.ExportFile(els, path)
			})
		})
	}
	exportMenu := fyne.NewMenu("Export", exportItem("Export PDF…", ".pdf"), exportItem("Export PNG…", ".png"), exportItem("Export SVG…", ".svg"))

	aboutItem := fyne.NewMenuItem("About Board Canvas", func() {
		exe, _ := os.Executable()
		cwd, _ := os.Getwd()
		info := fmt.Sprintf("Board Canvas\nVersion: %s\nStore: %s\nOS: %s\nArch: %s\nGo: %s\nExecutable: %s\nWorking Dir: %s",
			version.String(), h.opts.Config.Store.Mode, runtime.GOOS, runtime.GOARCH, runtime.Version(), exe, cwd)
		dialog.ShowInformation("Installation Environment", info, h.win)
	})
	copyrightItem := fyne.NewMenuItem("Copyright…", func() {
		msg := fmt.Sprintf("Board Canvas\nCopyright © 2025-%d The Board Canvas Authors\n\nLicensed under the Apache License, Version 2.0.", time.Now().Year())
		dialog.ShowInformation("Copyright", msg, h.win)
	})
	aboutMenu := fyne.NewMenu("About", aboutItem, copyrightItem)

	return fyne.NewMainMenu(fileMenu, editMenu, viewMenu, exportMenu, aboutMenu)
}

// saveAs asks for a destination and writes the current board with fn on the UI thread.
func (h *host) saveAs(defName, ext string, fn func(path string, els []domain.Element) error) {
	if h.sess == nil {
		return
	}
	save := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, h.win)
			return
		}
		if uc == nil {
			return
		}
		outPath := uc.URI().Path()
		_ = uc.Close()
		if err := fn(outPath, h.sess.Engine.Elements()); err != nil {
			h.log.Error("save failed", slog.String("path", outPath), slog.Any("err", err))
			dialog.ShowError(err, h.win)
			return
		}
		h.status.SetText("Saved " + outPath)
	}, h.win)
	save.SetFileName(defName)
	save.SetFilter(fstorage.NewExtensionFileFilter([]string{ext}))
	save.Show()
}

func (h *host) showOpenDialog() {
	entry := widget.NewEntry()
	entry.SetPlaceHolder("board id (uuid)")
	recent := widget.NewSelect(loadRecentBoards(h.app.Preferences()), func(s string) { entry.SetText(s) })
	items := []*widget.FormItem{widget.NewFormItem("Board", entry), widget.NewFormItem("Recent", recent)}
	dialog.ShowForm("Open Board", "Open", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		if err := h.open(strings.TrimSpace(entry.Text)); err != nil {
			dialog.ShowError(err, h.win)
		}
	}, h.win)
}

const recentPrefsKey = "recent.boards"

func loadRecentBoards(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return []string{}
		}
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		if id, err := domain.ParseBoardID(strings.TrimSpace(s)); err == nil {
			out = append(out, id)
		}
	}
	return out
}

func saveRecentBoards(p fyne.Preferences, items []string) {
	if len(items) > recentMax {
		items = items[:recentMax]
	}
	b, _ := json.Marshal(items)
	p.SetString(recentPrefsKey, string(b))
}
