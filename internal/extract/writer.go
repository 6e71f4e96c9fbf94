package extract

import (
	"bufio"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"svoextract/internal/framesource"
)

// Writer emits artifacts beneath one recording's output root.
type Writer struct {
	root string
	dirs map[Category]string
}

// NewWriter returns a writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{root: dir, dirs: make(map[Category]string)}
}

func (w *Writer) dir(c Category) (string, error) {
	if dir, ok := w.dirs[c]; ok {
		return dir, nil
	}
	dir := filepath.Join(w.root, c.Dir())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s directory: %w", c, err)
	}
	w.dirs[c] = dir
	return dir, nil
}

func (w *Writer) write(c Category, kind Kind, name string, index *int, encode func(io.Writer) error) (Artifact, error) {
	dir, err := w.dir(c)
	if err != nil {
		return Artifact{}, err
	}
	path := filepath.Join(dir, name)
	file, err := os.Create(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("create %s: %w", name, err)
	}
	counter := &countingWriter{w: file}
	bw := bufio.NewWriter(counter)
	if err := encode(bw); err != nil {
		file.Close()
		return Artifact{}, fmt.Errorf("encode %s: %w", name, err)
	}
	if err := bw.Flush(); err != nil {
		file.Close()
		return Artifact{}, fmt.Errorf("write %s: %w", name, err)
	}
	if err := file.Close(); err != nil {
		return Artifact{}, fmt.Errorf("close %s: %w", name, err)
	}
	return Artifact{Category: c, Kind: kind, Path: path, Name: name, FrameIndex: index, Size: counter.n}, nil
}

// Extractor turns the grabbed frame into artifacts named with index.
type Extractor func(w *Writer, frame framesource.Frame, index int) ([]Artifact, error)

type registration struct {
	category  Category
	extractor Extractor
}

// Per-frame extractors in fixed order. Inertial data is handled by
// InertialLog because it produces one artifact per recording.
var frameExtractors = []registration{
	{StereoLeft, stereo(framesource.ViewLeft, "rgb_left", StereoLeft)},
	{StereoRight, stereo(framesource.ViewRight, "rgb_right", StereoRight)},
	{Depth, visualizedMeasure(framesource.MeasureDepth, "depth", Depth, Jet)},
	{PointCloud, pointCloud},
	{Confidence, visualizedMeasure(framesource.MeasureConfidence, "confidence", Confidence, Viridis)},
	{Normals, rawMeasure(framesource.MeasureNormals, "normals", Normals)},
}

// ExtractFrame runs every enabled per-frame extractor in order and stops at
// the first failure. Artifacts written before the failure remain on disk and
// are returned alongside the error.
func (w *Writer) ExtractFrame(frame framesource.Frame, index int, sel Selection) ([]Artifact, error) {
	var out []Artifact
	for _, reg := range frameExtractors {
		if !sel.Enabled(reg.category) {
			continue
		}
		items, err := reg.extractor(w, frame, index)
		out = append(out, items...)
		if err != nil {
			return out, fmt.Errorf("%s: %w", reg.category, err)
		}
	}
	return out, nil
}

// FlushInertial writes the buffered inertial log. It returns nil when no
// samples were collected.
func (w *Writer) FlushInertial(log *InertialLog) (*Artifact, error) {
	if log == nil || log.Len() == 0 {
		return nil, nil
	}
	artifact, err := w.write(Inertial, KindInertialLog, InertialFileName, nil, log.WriteCSV)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Inertial, err)
	}
	return &artifact, nil
}

func stereo(view framesource.View, prefix string, c Category) Extractor {
	return func(w *Writer, frame framesource.Frame, index int) ([]Artifact, error) {
		img, err := frame.RetrieveImage(view)
		if err != nil {
			return nil, fmt.Errorf("retrieve %s image: %w", view, err)
		}
		artifact, err := w.write(c, KindImage, frameName(prefix, index, ".png"), &index, func(out io.Writer) error {
			return encodePNG(out, img)
		})
		if err != nil {
			return nil, err
		}
		return []Artifact{artifact}, nil
	}
}

func rawMeasure(kind framesource.MeasureKind, prefix string, c Category) Extractor {
	return func(w *Writer, frame framesource.Frame, index int) ([]Artifact, error) {
		m, err := frame.RetrieveMeasure(kind)
		if err != nil {
			return nil, fmt.Errorf("retrieve %s: %w", kind, err)
		}
		artifact, err := w.writeMeasure(c, prefix, index, m)
		if err != nil {
			return nil, err
		}
		return []Artifact{artifact}, nil
	}
}

func visualizedMeasure(kind framesource.MeasureKind, prefix string, c Category, cmap Colormap) Extractor {
	return func(w *Writer, frame framesource.Frame, index int) ([]Artifact, error) {
		m, err := frame.RetrieveMeasure(kind)
		if err != nil {
			return nil, fmt.Errorf("retrieve %s: %w", kind, err)
		}
		raw, err := w.writeMeasure(c, prefix, index, m)
		if err != nil {
			return nil, err
		}
		viz := Colorize(m, cmap)
		vizArtifact, err := w.write(c, KindImage, frameName(prefix, index, "_viz.png"), &index, func(out io.Writer) error {
			return encodePNG(out, viz)
		})
		if err != nil {
			return []Artifact{raw}, err
		}
		return []Artifact{raw, vizArtifact}, nil
	}
}

func (w *Writer) writeMeasure(c Category, prefix string, index int, m *framesource.Measure) (Artifact, error) {
	return w.write(c, KindRawMeasure, frameName(prefix, index, ".npy"), &index, func(out io.Writer) error {
		return WriteNPY(out, m.Shape(), m.Data)
	})
}

func pointCloud(w *Writer, frame framesource.Frame, index int) ([]Artifact, error) {
	m, err := frame.RetrieveMeasure(framesource.MeasurePointCloud)
	if err != nil {
		return nil, fmt.Errorf("retrieve %s: %w", framesource.MeasurePointCloud, err)
	}
	artifact, err := w.write(PointCloud, KindPointCloud, frameName("pointcloud", index, ".ply"), &index, func(out io.Writer) error {
		_, err := WritePLY(out, m)
		return err
	})
	if err != nil {
		return nil, err
	}
	return []Artifact{artifact}, nil
}

// encodePNG writes img as an RGB PNG. Alpha is discarded by forcing every
// pixel opaque, which makes the encoder pick a truecolour layout.
func encodePNG(w io.Writer, img *image.NRGBA) error {
	bounds := img.Bounds()
	opaque := image.NewNRGBA(bounds)
	draw.Draw(opaque, bounds, img, bounds.Min, draw.Src)
	for i := 3; i < len(opaque.Pix); i += 4 {
		opaque.Pix[i] = 0xff
	}
	return png.Encode(w, opaque)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
