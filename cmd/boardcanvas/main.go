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
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"boardcanvas/internal/backend"
	"boardcanvas/internal/config"
	"boardcanvas/internal/crash"
	"boardcanvas/internal/domain"
	applog "boardcanvas/internal/log"
	"boardcanvas/internal/telemetry"
	"boardcanvas/internal/ui"
	"boardcanvas/internal/version"
)

func usage() {
	fmt.Println("Board Canvas")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  boardcanvas version|-v|--version                 Show version")
	fmt.Println("  boardcanvas serve                                 Run the REST element store (server.* config)")
	fmt.Println("  boardcanvas ui [<board>]                          Launch desktop UI (build with -tags fyne for full UI)")
	fmt.Println("  boardcanvas new                                   Print a fresh board id")
	fmt.Println("  boardcanvas list <board>                          Print the board's elements as JSON")
	fmt.Println("  boardcanvas history <board> [limit]               Print the board's mutation history")
	fmt.Println("  boardcanvas export pdf|png|svg <board> <out>      Export the board to a file")
	fmt.Println("  boardcanvas export web|print <board> <outDir>     Export with a preset")
	fmt.Println("  boardcanvas snapshot save|load <board> <file>     Save the board to / restore it from a snapshot file")
	fmt.Println("  boardcanvas bundle export|import <board> <zip>    Pack the board with previews / restore a bundle")
	fmt.Println("  boardcanvas replay <board> <script.yaml>          Replay recorded input against the board")
	fmt.Println("  boardcanvas token set <token>|clear|issue [user]  Manage the backend bearer token")
	fmt.Println()
	fmt.Println("Board commands use the store selected by store.mode (http or sqlite).")
}

// fail prints the error and exits with code 1.
func fail(l *slog.Logger, what string, err error) {
	l.Error(what+" failed", slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}

// need exits with usage when fewer than n arguments follow the command.
func need(args []string, n int, msg string) {
	if len(args) < n+2 {
		fmt.Println(msg)
		usage()
		os.Exit(2)
	}
}

func main() {
	cfg, token, cfgErr := config.Load()
	applog.Init(cfg.Logging.Options())
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config load failed; using defaults", slog.Any("err", cfgErr))
	}

	tc := telemetry.FromEnv()
	tc.OptIn = tc.OptIn || cfg.General.TelemetryOptIn
	tel := telemetry.New(tc)
	telemetry.SetDefault(tel)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		tel.Flush(ctx)
		tel.Close()
	}()

	board := &crash.Board{}
	defer crash.Recover(board)

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	c := &cli{cfg: cfg, token: token, log: l, crash: board}

	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("Board Canvas")
		fmt.Println(version.String())
	case "serve":
		l.Info("serve", slog.String("addr", cfg.Server.Addr), slog.String("driver", cfg.Server.Driver))
		if err := backend.Start(ctx, cfg.Server); err != nil {
			fail(l, "serve", err)
		}
	case "ui":
		var id string
		if len(args) >= 3 {
			id = args[2]
		}
		if err := ui.Run(ui.Options{Config: cfg, Token: token, BoardID: id}); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
	case "new":
		fmt.Println(domain.NewBoardID())
	case "list":
		need(args, 1, "list requires <board>")
		if err := c.list(ctx, args[2]); err != nil {
			fail(l, "list", err)
		}
	case "history":
		need(args, 1, "history requires <board>")
		limit := 0
		if len(args) >= 4 {
			n, err := strconv.Atoi(args[3])
			if err != nil {
				fail(l, "history", fmt.Errorf("invalid limit %q", args[3]))
			}
			limit = n
		}
		if err := c.history(ctx, args[2], limit); err != nil {
			fail(l, "history", err)
		}
	case "export":
		need(args, 3, "export requires <format|preset> <board> <out>")
		if err := c.export(ctx, args[2], args[3], args[4]); err != nil {
			fail(l, "export", err)
		}
	case "snapshot":
		need(args, 3, "snapshot requires save|load <board> <file>")
		if err := c.snapshot(ctx, args[2], args[3], args[4]); err != nil {
			fail(l, "snapshot", err)
		}
	case "bundle":
		need(args, 3, "bundle requires export|import <board> <zip>")
		if err := c.bundle(ctx, args[2], args[3], args[4]); err != nil {
			fail(l, "bundle", err)
		}
	case "replay":
		need(args, 2, "replay requires <board> <script.yaml>")
		if err := c.replay(ctx, args[2], args[3]); err != nil {
			fail(l, "replay", err)
		}
	case "token":
		need(args, 1, "token requires set|clear|issue")
		if err := c.tokenCmd(ctx, args[2:]); err != nil {
			fail(l, "token", err)
		}
	default:
		usage()
		os.Exit(2)
	}
}
