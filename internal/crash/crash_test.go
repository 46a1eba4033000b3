/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pathnet/internal/domain"
	"pathnet/internal/storage"
)

func silenceStderr(t *testing.T) {
	t.Helper()
	old := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stderr = w
	done := make(chan struct{})
	go func() { _, _ = io.Copy(io.Discard, r); close(done) }()
	t.Cleanup(func() {
		_ = w.Close()
		<-done
		os.Stderr = old
	})
}

func sampleDoc() *domain.Network {
	return &domain.Network{
		Name:    "yard",
		Version: domain.CurrentVersion,
		Nodes:   []domain.Node{{ID: "a"}, {ID: "b", Position: domain.Vec3{1, 0, 0}}},
		Paths:   []domain.Path{{ID: "ab", Kind: domain.KindLinear, Nodes: []domain.PathNode{{Node: "a"}, {Node: "b"}}}},
	}
}

func TestWriteReportWithoutSubjectUsesTemp(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	if filepath.Dir(path) != filepath.Clean(os.TempDir()) {
		t.Fatalf("expected report in temp dir, got %s", path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "pathnet crash report") || !strings.Contains(string(b), "Panic: boom") {
		t.Fatalf("unexpected report:\n%s", b)
	}
}

func TestRecoverWritesReportAndAutosave(t *testing.T) {
	silenceStderr(t)
	code := 0
	old := exitFn
	exitFn = func(c int) { code = c }
	t.Cleanup(func() { exitFn = old })

	dir := t.TempDir()
	subj := &Subject{Path: filepath.Join(dir, "yard.yaml"), Doc: sampleDoc()}
	func() {
		defer Recover(subj)
		panic("kaboom")
	}()

	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	entries, err := os.ReadDir(filepath.Join(dir, storage.BackupsDirName))
	if err != nil {
		t.Fatal(err)
	}
	var report, autosave string
	for _, e := range entries {
		switch {
		case strings.HasPrefix(e.Name(), "crash-") && strings.HasSuffix(e.Name(), ".log"):
			report = e.Name()
		case strings.HasPrefix(e.Name(), "yard.crash-"):
			autosave = e.Name()
		}
	}
	if report == "" || autosave == "" {
		t.Fatalf("missing files in backups: %v", entries)
	}
	b, _ := os.ReadFile(filepath.Join(dir, storage.BackupsDirName, report))
	if !strings.Contains(string(b), "Panic: kaboom") || !strings.Contains(string(b), "Network: yard (2 nodes, 1 paths)") {
		t.Fatalf("unexpected report:\n%s", b)
	}
	doc, err := storage.Load(filepath.Join(dir, storage.BackupsDirName, autosave))
	if err != nil || doc.Name != "yard" {
		t.Fatalf("autosave unreadable: %v", err)
	}
}

func TestRecoverWithoutPanicIsNoop(t *testing.T) {
	called := false
	old := exitFn
	exitFn = func(int) { called = true }
	t.Cleanup(func() { exitFn = old })
	func() {
		defer Recover(nil)
	}()
	if called {
		t.Fatalf("exit should not be called without a panic")
	}
}
