/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report plus an autosave of the
// network document being worked on.
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

	"pathnet/internal/domain"
	applog "pathnet/internal/log"
	"pathnet/internal/storage"
	"pathnet/internal/telemetry"
	"pathnet/internal/version"
)

var exitFn = os.Exit

// Subject is the document a command was working on when it panicked.
// Path is where it was loaded from; Doc may be nil before loading finished.
type Subject struct {
	Path string
	Doc  *domain.Network
}

// Recover must be deferred directly: defer crash.Recover(&subj).
// On panic it logs the stack, writes a report, autosaves the document and
// exits with status 2.
func Recover(s *Subject) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(s, r, stack)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
	}
	if s != nil && s.Doc != nil && s.Path != "" {
		if out, err := storage.AutosaveCrash(s.Path, *s.Doc); err != nil {
			l.Error("crash autosave failed", slog.Any("err", err))
		} else {
			l.Info("crash autosave written", slog.String("path", out))
		}
	}

	_, _ = fmt.Fprintf(os.Stderr, "pathnet crashed. Report: %s\nVersion: %s (%s/%s)\n", reportPath, version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func reportDir(s *Subject) string {
	if s == nil || s.Path == "" {
		return os.TempDir()
	}
	dir := filepath.Join(filepath.Dir(s.Path), storage.BackupsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return os.TempDir()
	}
	return dir
}

func writeReport(s *Subject, panicVal any, stack []byte) (string, error) {
	path := filepath.Join(reportDir(s), fmt.Sprintf("crash-%s.log", time.Now().Format("20060102-150405.000")))

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "pathnet crash report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if s != nil {
		fmt.Fprintf(&buf, "Document: %s\n", s.Path)
		if s.Doc != nil {
			fmt.Fprintf(&buf, "Network: %s (%d nodes, %d paths)\n", s.Doc.Name, len(s.Doc.Nodes), len(s.Doc.Paths))
		}
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\nStack:\n%s\n", panicVal, stack)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
