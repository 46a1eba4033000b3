/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PresetName represents a named export preset.
type PresetName string

const (
	// PresetWeb favours screens: a plain 1280x800 raster without labels.
	PresetWeb PresetName = "web"
	// PresetPrint favours paper: A4 landscape with node labels.
	PresetPrint PresetName = "print"
)

// Write exports p to outPath, choosing the format from its extension
// (.pdf or .png) and sizing from the preset.
func Write(p Plot, outPath string, preset PresetName) error {
	st := DefaultStyle()
	st.IncludeLabels = presetIncludeLabels(preset)
	switch strings.ToLower(filepath.Ext(outPath)) {
	case ".pdf":
		w, h := 842.0, 595.0
		if preset == PresetWeb {
			w, h = 960, 600
		}
		return ExportPDF(p, outPath, PDFOptions{Width: w, Height: h, Style: st})
	case ".png":
		w, h := 1280, 800
		if preset == PresetPrint {
			// A4 landscape at 150 dpi
			w, h = 1754, 1240
		}
		return ExportPNG(p, outPath, PNGOptions{Width: w, Height: h, Style: st})
	default:
		return fmt.Errorf("unknown export format: %q (want .pdf or .png)", filepath.Ext(outPath))
	}
}

func presetIncludeLabels(p PresetName) bool {
	switch p {
	case PresetWeb:
		return false
	default:
		return true
	}
}
