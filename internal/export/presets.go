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

	"boardcanvas/internal/domain"
	"boardcanvas/internal/textlayout"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// Formats known to ExportFile and BatchExport.
const (
	FormatPDF = "pdf"
	FormatPNG = "png"
	FormatSVG = "svg"
)

// BatchOptions controls a multi-format export of one board.
// Files are written as <OutDir>/<Name>.<format>; Name defaults to "board".
type BatchOptions struct {
	Preset       PresetName
	Formats      []string // empty means preset defaults
	OutDir       string
	Name         string
	Scale        float64 // raster scale override
	IncludeFrame *bool   // overrides the preset's default
	Font         textlayout.Provider
}

// BatchExport runs the exports of a preset and returns the written paths.
func BatchExport(elements []domain.Element, opt BatchOptions) ([]string, error) {
	if opt.OutDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	name := opt.Name
	if name == "" {
		name = "board"
	}
	frame := presetIncludeFrame(opt.Preset)
	if opt.IncludeFrame != nil {
		frame = *opt.IncludeFrame
	}
	scale := presetScale(opt.Preset)
	if opt.Scale > 0 {
		scale = opt.Scale
	}

	var written []string
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		out := filepath.Join(opt.OutDir, name+"."+f)
		var err error
		switch f {
		case FormatPDF:
			err = ExportPDF(elements, out, PDFOptions{IncludeFrame: frame, Title: name})
		case FormatPNG:
			err = ExportPNG(elements, out, PNGOptions{Scale: scale, Font: opt.Font})
		case FormatSVG:
			err = ExportSVG(elements, out, SVGOptions{IncludeFrame: frame})
		default:
			return written, fmt.Errorf("unknown format: %s", f)
		}
		if err != nil {
			return written, fmt.Errorf("%s export: %w", f, err)
		}
		written = append(written, out)
	}
	return written, nil
}

// ExportFile picks the exporter from the file extension.
func ExportFile(elements []domain.Element, outPath string) error {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(outPath), ".")) {
	case FormatPDF:
		return ExportPDF(elements, outPath, PDFOptions{})
	case FormatPNG:
		return ExportPNG(elements, outPath, PNGOptions{})
	case FormatSVG:
		return ExportSVG(elements, outPath, SVGOptions{})
	}
	return fmt.Errorf("cannot infer export format from %q", outPath)
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{FormatPNG, FormatSVG}
	case PresetPrint:
		return []string{FormatPDF, FormatPNG}
	default:
		return []string{FormatPDF}
	}
}

func presetIncludeFrame(p PresetName) bool {
	return p == PresetPrint
}

func presetScale(p PresetName) float64 {
	if p == PresetPrint {
		return 4
	}
	return 2
}
