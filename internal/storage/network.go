/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pathnet/internal/domain"
)

// BackupsDirName is created next to a saved document to hold prior versions.
const BackupsDirName = "backups"

// ErrVersion marks a document written by a newer format version.
var ErrVersion = errors.New("unsupported document version")

// Format is the encoding of a network document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor picks the format from a file extension. Anything that is not
// .json is treated as YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Load reads, validates and decodes a network document. If the file cannot
// be read or parsed, the latest backup next to it is tried.
func Load(path string) (domain.Network, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		doc, berr := openFromLatestBackup(path)
		if berr != nil {
			return domain.Network{}, fmt.Errorf("open network: %w; backup attempt: %v", err, berr)
		}
		return doc, nil
	}
	doc, derr := Decode(b, FormatFor(path))
	if derr != nil {
		if errors.Is(derr, ErrSchema) || errors.Is(derr, ErrVersion) {
			return domain.Network{}, fmt.Errorf("%s: %w", path, derr)
		}
		bdoc, berr := openFromLatestBackup(path)
		if berr != nil {
			return domain.Network{}, fmt.Errorf("parse network: %w; backup attempt: %v", derr, berr)
		}
		return bdoc, nil
	}
	return doc, nil
}

// Decode validates and decodes document bytes.
func Decode(data []byte, format Format) (domain.Network, error) {
	var doc domain.Network
	var err error
	if format == FormatJSON {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return domain.Network{}, fmt.Errorf("decode %s: %w", format, err)
	}
	if err := Validate(data, format); err != nil {
		return domain.Network{}, err
	}
	if doc.Version > domain.CurrentVersion {
		return domain.Network{}, fmt.Errorf("%w: %d (this build reads up to %d)", ErrVersion, doc.Version, domain.CurrentVersion)
	}
	return doc, nil
}

// Marshal encodes doc in human-readable form.
func Marshal(doc domain.Network, format Format) ([]byte, error) {
	if doc.Nodes == nil {
		doc.Nodes = []domain.Node{}
	}
	if doc.Paths == nil {
		doc.Paths = []domain.Path{}
	}
	if format == FormatJSON {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return yaml.Marshal(doc)
}

// Hash is a stable content hash of doc, used to key cached routes.
func Hash(doc domain.Network) string {
	b, _ := json.Marshal(doc)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Save writes doc to path with transactional semantics and a timestamped
// backup of the previous file (if present).
func Save(path string, doc domain.Network) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("path is required")
	}
	if doc.Version == 0 {
		doc.Version = domain.CurrentVersion
	}
	data, err := Marshal(doc, FormatFor(path))
	if err != nil {
		return fmt.Errorf("marshal network: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		bdir := filepath.Join(dir, BackupsDirName)
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
		if cerr := copyFile(path, bpath); cerr != nil {
			return fmt.Errorf("backup current network: %w", cerr)
		}
	}

	// Transactional write: to temp file in same directory, then rename over target
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp network: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace network: %w", rerr)
	}
	return nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// openFromLatestBackup decodes the newest backup of the document at path.
func openFromLatestBackup(path string) (domain.Network, error) {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return domain.Network{}, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(path) + "."
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return domain.Network{}, errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	latest := candidates[len(candidates)-1]
	b, err := os.ReadFile(latest)
	if err != nil {
		return domain.Network{}, fmt.Errorf("read latest backup: %w", err)
	}
	doc, err := Decode(b, FormatFor(path))
	if err != nil {
		return domain.Network{}, fmt.Errorf("parse latest backup: %w", err)
	}
	return doc, nil
}

// AutosaveCrash writes doc next to path under backups/ with a crash stamp
// and returns the written file. The original file is left untouched.
func AutosaveCrash(path string, doc domain.Network) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("path is required")
	}
	ext := filepath.Ext(path)
	if ext == "" {
		ext = ".yaml"
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stamp := time.Now().Format("20060102-150405.000")
	out := filepath.Join(filepath.Dir(path), BackupsDirName, fmt.Sprintf("%s.crash-%s%s", base, stamp, ext))
	if err := Save(out, doc); err != nil {
		return "", err
	}
	return out, nil
}
