package extract

import (
	"fmt"
	"sort"
	"strings"
)

// Category identifies one extracted modality.
type Category string

const (
	StereoLeft  Category = "stereo_left"
	StereoRight Category = "stereo_right"
	Depth       Category = "depth"
	PointCloud  Category = "point_cloud"
	Confidence  Category = "confidence"
	Normals     Category = "normals"
	Inertial    Category = "inertial"
)

var categoryOrder = []Category{StereoLeft, StereoRight, Depth, PointCloud, Confidence, Normals, Inertial}

var categoryDirs = map[Category]string{
	StereoLeft:  "1_RGB_Left",
	StereoRight: "2_RGB_Right",
	Depth:       "3_Depth",
	PointCloud:  "4_PointCloud",
	Confidence:  "5_Confidence",
	Normals:     "6_Normals",
	Inertial:    "7_IMU",
}

var categoryAliases = map[string]Category{
	"rgb_left":   StereoLeft,
	"left":       StereoLeft,
	"rgb_right":  StereoRight,
	"right":      StereoRight,
	"pointcloud": PointCloud,
	"imu":        Inertial,
}

// Categories returns every category in extraction order.
func Categories() []Category {
	return append([]Category(nil), categoryOrder...)
}

// Dir returns the stable directory name for the category.
func (c Category) Dir() string {
	return categoryDirs[c]
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryDirs[c]
	return ok
}

// Rank is the position of c in extraction order, or len(order) if unknown.
func (c Category) Rank() int {
	for i, candidate := range categoryOrder {
		if candidate == c {
			return i
		}
	}
	return len(categoryOrder)
}

// ParseCategory accepts canonical names and a few legacy aliases.
func ParseCategory(value string) (Category, error) {
	key := strings.ToLower(strings.TrimSpace(value))
	key = strings.ReplaceAll(key, "-", "_")
	if c := Category(key); c.Valid() {
		return c, nil
	}
	if c, ok := categoryAliases[key]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", value)
}

// CategoryForDir maps an output directory name back to its category.
func CategoryForDir(dir string) (Category, bool) {
	for c, name := range categoryDirs {
		if name == dir {
			return c, true
		}
	}
	return "", false
}

// Kind classifies an artifact's payload.
type Kind string

const (
	KindImage       Kind = "image"
	KindRawMeasure  Kind = "raw_measure"
	KindPointCloud  Kind = "point_cloud"
	KindInertialLog Kind = "inertial_log"
)

// Selection records which categories are enabled.
type Selection map[Category]bool

// ParseSelection builds a selection from category names.
func ParseSelection(values []string) (Selection, error) {
	sel := Selection{}
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			c, err := ParseCategory(part)
			if err != nil {
				return nil, err
			}
			sel[c] = true
		}
	}
	return sel, nil
}

// All returns a selection with every category enabled.
func All() Selection {
	sel := Selection{}
	for _, c := range categoryOrder {
		sel[c] = true
	}
	return sel
}

// Enabled reports whether c is selected.
func (s Selection) Enabled(c Category) bool {
	return s[c]
}

// List returns enabled categories in extraction order.
func (s Selection) List() []Category {
	out := make([]Category, 0, len(s))
	for _, c := range categoryOrder {
		if s[c] {
			out = append(out, c)
		}
	}
	return out
}

// Empty reports whether no category is enabled.
func (s Selection) Empty() bool {
	return len(s.List()) == 0
}

// String renders enabled categories as a comma separated list.
func (s Selection) String() string {
	parts := make([]string, 0, len(s))
	for _, c := range s.List() {
		parts = append(parts, string(c))
	}
	return strings.Join(parts, ",")
}

// Artifact describes one file written by an extractor.
type Artifact struct {
	Category Category
	Kind     Kind
	Path     string
	Name     string
	// FrameIndex is the dense output index; nil for per-recording logs.
	FrameIndex *int
	Size       int64
}

// SortArtifacts orders artifacts by category, frame index and name. Entries
// without a frame index sort before indexed ones within a category.
func SortArtifacts(items []Artifact) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if ra, rb := a.Category.Rank(), b.Category.Rank(); ra != rb {
			return ra < rb
		}
		switch {
		case a.FrameIndex == nil && b.FrameIndex != nil:
			return true
		case a.FrameIndex != nil && b.FrameIndex == nil:
			return false
		case a.FrameIndex != nil && b.FrameIndex != nil && *a.FrameIndex != *b.FrameIndex:
			return *a.FrameIndex < *b.FrameIndex
		}
		return a.Name < b.Name
	})
}

func frameName(prefix string, index int, suffix string) string {
	return fmt.Sprintf("%s_frame_%06d%s", prefix, index, suffix)
}
