package packager

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"svoextract/internal/extract"
)

var frameIndexPattern = regexp.MustCompile(`_frame_(\d+)`)

// ScanExisting walks a recording's output directory and describes every file
// found in a known category directory. Unknown directories and files are
// skipped. A missing directory yields no artifacts.
func ScanExisting(dir string) ([]extract.Artifact, error) {
	var out []extract.Artifact
	for _, c := range extract.Categories() {
		catDir := filepath.Join(dir, c.Dir())
		entries, err := os.ReadDir(catDir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", catDir, err)
		}
		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			kind, ok := kindForFile(c, entry.Name())
			if !ok {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
			}
			artifact := extract.Artifact{
				Category: c,
				Kind:     kind,
				Path:     filepath.Join(catDir, entry.Name()),
				Name:     entry.Name(),
				Size:     info.Size(),
			}
			if kind != extract.KindInertialLog {
				if match := frameIndexPattern.FindStringSubmatch(entry.Name()); match != nil {
					if idx, err := strconv.Atoi(match[1]); err == nil {
						artifact.FrameIndex = &idx
					}
				}
			}
			out = append(out, artifact)
		}
	}
	extract.SortArtifacts(out)
	return out, nil
}

func kindForFile(c extract.Category, name string) (extract.Kind, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return extract.KindImage, true
	case ".npy":
		return extract.KindRawMeasure, true
	case ".ply":
		return extract.KindPointCloud, c == extract.PointCloud
	case ".csv":
		return extract.KindInertialLog, c == extract.Inertial
	}
	return "", false
}
