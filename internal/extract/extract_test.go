package extract_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"svoextract/internal/extract"
	"svoextract/internal/framesource"
	"svoextract/internal/framesource/synthetic"
)

type fakeFrame struct {
	img      *image.NRGBA
	measures map[framesource.MeasureKind]*framesource.Measure
	sample   *framesource.SensorSample
	err      error
}

func (f *fakeFrame) RetrieveImage(framesource.View) (*image.NRGBA, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.img, nil
}

func (f *fakeFrame) RetrieveMeasure(kind framesource.MeasureKind) (*framesource.Measure, error) {
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.measures[kind]
	if !ok {
		return nil, errors.New("missing measure")
	}
	return m, nil
}

func (f *fakeFrame) RetrieveSensorSample() (framesource.SensorSample, error) {
	if f.sample == nil {
		return framesource.SensorSample{}, framesource.ErrUnavailable
	}
	return *f.sample, nil
}

func grabbedSynthetic(t *testing.T) framesource.Source {
	t.Helper()
	opts := synthetic.DefaultOptions()
	opts.Width, opts.Height = 8, 6
	src, err := synthetic.New(opts).Open(context.Background(), "demo.svo2", framesource.DepthUltra)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = src.Close() })
	if err := src.Grab(); err != nil {
		t.Fatalf("Grab failed: %v", err)
	}
	return src
}

func TestExtractFrameWritesEveryCategoryInOrder(t *testing.T) {
	root := t.TempDir()
	w := extract.NewWriter(root)
	artifacts, err := w.ExtractFrame(grabbedSynthetic(t), 3, extract.All())
	if err != nil {
		t.Fatalf("ExtractFrame failed: %v", err)
	}
	want := []struct {
		dir  string
		name string
		kind extract.Kind
	}{
		{"1_RGB_Left", "rgb_left_frame_000003.png", extract.KindImage},
		{"2_RGB_Right", "rgb_right_frame_000003.png", extract.KindImage},
		{"3_Depth", "depth_frame_000003.npy", extract.KindRawMeasure},
		{"3_Depth", "depth_frame_000003_viz.png", extract.KindImage},
		{"4_PointCloud", "pointcloud_frame_000003.ply", extract.KindPointCloud},
		{"5_Confidence", "confidence_frame_000003.npy", extract.KindRawMeasure},
		{"5_Confidence", "confidence_frame_000003_viz.png", extract.KindImage},
		{"6_Normals", "normals_frame_000003.npy", extract.KindRawMeasure},
	}
	if len(artifacts) != len(want) {
		t.Fatalf("expected %d artifacts, got %d", len(want), len(artifacts))
	}
	for i, expected := range want {
		got := artifacts[i]
		if got.Name != expected.name || got.Kind != expected.kind {
			t.Fatalf("artifact %d = %s/%s, want %s/%s", i, got.Name, got.Kind, expected.name, expected.kind)
		}
		if got.Path != filepath.Join(root, expected.dir, expected.name) {
			t.Fatalf("artifact %d path = %s", i, got.Path)
		}
		if got.FrameIndex == nil || *got.FrameIndex != 3 {
			t.Fatalf("artifact %d frame index = %v", i, got.FrameIndex)
		}
		info, err := os.Stat(got.Path)
		if err != nil {
			t.Fatalf("stat %s: %v", got.Path, err)
		}
		if info.Size() != got.Size || got.Size == 0 {
			t.Fatalf("artifact %d size = %d, file size %d", i, got.Size, info.Size())
		}
	}
}

func TestExtractFrameHonoursSelection(t *testing.T) {
	w := extract.NewWriter(t.TempDir())
	sel, err := extract.ParseSelection([]string{"normals,rgb_left"})
	if err != nil {
		t.Fatalf("ParseSelection failed: %v", err)
	}
	artifacts, err := w.ExtractFrame(grabbedSynthetic(t), 0, sel)
	if err != nil {
		t.Fatalf("ExtractFrame failed: %v", err)
	}
	if len(artifacts) != 2 || artifacts[0].Category != extract.StereoLeft || artifacts[1].Category != extract.Normals {
		t.Fatalf("unexpected artifacts: %+v", artifacts)
	}
}

func TestExtractFrameFailureKeepsWrittenArtifacts(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	frame := &fakeFrame{img: img, measures: map[framesource.MeasureKind]*framesource.Measure{}}
	w := extract.NewWriter(t.TempDir())
	artifacts, err := w.ExtractFrame(frame, 0, extract.Selection{extract.StereoLeft: true, extract.Depth: true})
	if err == nil {
		t.Fatal("expected depth failure")
	}
	if !strings.Contains(err.Error(), "depth") {
		t.Fatalf("expected category in error, got %v", err)
	}
	if len(artifacts) != 1 {
		t.Fatalf("expected stereo artifact to be returned, got %d", len(artifacts))
	}
	if _, err := os.Stat(artifacts[0].Path); err != nil {
		t.Fatalf("expected left image to remain: %v", err)
	}
}

func TestStereoPNGIsOpaqueRGB(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Pix = []uint8{10, 20, 30, 0, 40, 50, 60, 128}
	w := extract.NewWriter(t.TempDir())
	artifacts, err := w.ExtractFrame(&fakeFrame{img: img}, 0, extract.Selection{extract.StereoLeft: true})
	if err != nil {
		t.Fatalf("ExtractFrame failed: %v", err)
	}
	file, err := os.Open(artifacts[0].Path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()
	decoded, err := png.Decode(file)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := decoded.(*image.RGBA); !ok {
		t.Fatalf("expected truecolour PNG, got %T", decoded)
	}
	r, g, b, a := decoded.At(0, 0).RGBA()
	if r>>8 != 10 || g>>8 != 20 || b>>8 != 30 || a>>8 != 255 {
		t.Fatalf("unexpected pixel %d %d %d %d", r>>8, g>>8, b>>8, a>>8)
	}
}

func TestNPYRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	data := []float32{1, 2.5, float32(math.Inf(1)), -4, 5, 6}
	if err := extract.WriteNPY(&buf, []int{2, 3}, data); err != nil {
		t.Fatalf("WriteNPY failed: %v", err)
	}
	raw := buf.Bytes()
	headerLen := int(raw[8]) | int(raw[9])<<8
	if (10+headerLen)%64 != 0 {
		t.Fatalf("header not 64-byte aligned: %d", 10+headerLen)
	}
	if raw[10+headerLen-1] != '\n' {
		t.Fatal("header must end with newline")
	}
	if !strings.Contains(string(raw[10:10+headerLen]), "'shape': (2, 3)") {
		t.Fatalf("unexpected header %q", raw[10:10+headerLen])
	}
	shape, decoded, err := readNPY(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("readNPY failed: %v", err)
	}
	if len(shape) != 2 || shape[0] != 2 || shape[1] != 3 {
		t.Fatalf("unexpected shape %v", shape)
	}
	for i := range data {
		if decoded[i] != data[i] {
			t.Fatalf("value %d = %v, want %v", i, decoded[i], data[i])
		}
	}
	if err := extract.WriteNPY(&buf, []int{4}, data); err == nil {
		t.Fatal("expected shape mismatch error")
	}
}

func TestWritePLYFiltersAndUnpacksColour(t *testing.T) {
	nan := float32(math.NaN())
	m := &framesource.Measure{Width: 3, Height: 1, Channels: 4, Data: []float32{
		1, 2, 3, synthetic.PackColor(10, 20, 30, 0x3f),
		nan, 0, 0, synthetic.PackColor(1, 1, 1, 0x3f),
		0.5, -1, 2, nan,
	}}
	var buf bytes.Buffer
	count, err := extract.WritePLY(&buf, m)
	if err != nil {
		t.Fatalf("WritePLY failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 vertex, got %d", count)
	}
	want := "ply\nformat ascii 1.0\nelement vertex 1\n" +
		"property float x\nproperty float y\nproperty float z\n" +
		"property uchar red\nproperty uchar green\nproperty uchar blue\n" +
		"end_header\n1 2 3 10 20 30\n"
	if buf.String() != want {
		t.Fatalf("unexpected PLY:\n%s", buf.String())
	}
}

func TestWritePLYAllInvalidEmitsEmptyGeometry(t *testing.T) {
	nan := float32(math.NaN())
	m := &framesource.Measure{Width: 2, Height: 1, Channels: 4, Data: []float32{nan, nan, nan, 0, nan, 1, 1, 0}}
	var buf bytes.Buffer
	if _, err := extract.WritePLY(&buf, m); err != nil {
		t.Fatalf("WritePLY failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "element vertex 0\n") {
		t.Fatalf("expected zero vertices, got %q", out)
	}
	if !strings.HasSuffix(out, "end_header\n") {
		t.Fatalf("expected no vertex lines, got %q", out)
	}
}

func TestWritePLYWithoutColourChannelIsWhite(t *testing.T) {
	m := &framesource.Measure{Width: 1, Height: 1, Channels: 3, Data: []float32{0.25, 0, 1}}
	var buf bytes.Buffer
	if _, err := extract.WritePLY(&buf, m); err != nil {
		t.Fatalf("WritePLY failed: %v", err)
	}
	if !strings.HasSuffix(buf.String(), "0.25 0 1 255 255 255\n") {
		t.Fatalf("expected white vertex, got %q", buf.String())
	}
}

func TestUnpackColorReadsBitFields(t *testing.T) {
	packed := math.Float32frombits(0x00a1b2c3)
	r, g, b := extract.UnpackColor(packed)
	if r != 0xa1 || g != 0xb2 || b != 0xc3 {
		t.Fatalf("UnpackColor = (%#x, %#x, %#x), want (0xa1, 0xb2, 0xc3)", r, g, b)
	}
}

func TestColorizeNormalizesFiniteRange(t *testing.T) {
	inf := float32(math.Inf(1))
	m := &framesource.Measure{Width: 3, Height: 1, Channels: 1, Data: []float32{2, inf, 4}}
	img := extract.Colorize(m, extract.Jet)
	if got := img.NRGBAAt(0, 0); got != extract.Jet(0) {
		t.Fatalf("min pixel = %v, want %v", got, extract.Jet(0))
	}
	if got := img.NRGBAAt(2, 0); got != extract.Jet(255) {
		t.Fatalf("max pixel = %v, want %v", got, extract.Jet(255))
	}
	if got := img.NRGBAAt(1, 0); got.R != 0 || got.G != 0 || got.B != 0 || got.A != 255 {
		t.Fatalf("non-finite pixel = %v, want black", got)
	}
}

func TestColormapEndpoints(t *testing.T) {
	if c := extract.Jet(0); c.B == 0 || c.R != 0 {
		t.Fatalf("jet low should be blue, got %v", c)
	}
	if c := extract.Jet(255); c.R == 0 || c.B != 0 {
		t.Fatalf("jet high should be red, got %v", c)
	}
	if c := extract.Viridis(0); c.R != 68 || c.G != 1 || c.B != 84 {
		t.Fatalf("viridis low = %v", c)
	}
	if c := extract.Viridis(255); c.R != 253 || c.G != 231 || c.B != 37 {
		t.Fatalf("viridis high = %v", c)
	}
}

func TestInertialLogSkipsUnavailableAndWritesCSV(t *testing.T) {
	var log extract.InertialLog
	if err := log.Collect(&fakeFrame{}, 0); err != nil {
		t.Fatalf("Collect unavailable failed: %v", err)
	}
	sample := framesource.SensorSample{
		TimestampMs:        66,
		Orientation:        [4]float64{0, 0, 0, 1},
		AngularVelocity:    [3]float64{0.1, 0.2, 0.3},
		LinearAcceleration: [3]float64{0, 0, -9.81},
	}
	if err := log.Collect(&fakeFrame{sample: &sample}, 1); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if log.Len() != 1 {
		t.Fatalf("expected 1 sample, got %d", log.Len())
	}
	w := extract.NewWriter(t.TempDir())
	artifact, err := w.FlushInertial(&log)
	if err != nil {
		t.Fatalf("FlushInertial failed: %v", err)
	}
	if artifact.FrameIndex != nil || artifact.Kind != extract.KindInertialLog || artifact.Name != "imu_data.csv" {
		t.Fatalf("unexpected artifact %+v", artifact)
	}
	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %q", data)
	}
	if !strings.HasPrefix(lines[0], "frame,timestamp_ms,orientation_x") || !strings.HasSuffix(lines[0], "linear_acceleration_z") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != "1,66,0,0,0,1,0.1,0.2,0.3,0,0,-9.81" {
		t.Fatalf("unexpected row %q", lines[1])
	}

	empty, err := w.FlushInertial(&extract.InertialLog{})
	if err != nil || empty != nil {
		t.Fatalf("expected nil artifact for empty log, got %v %v", empty, err)
	}
}

func TestSortArtifacts(t *testing.T) {
	one, zero := 1, 0
	items := []extract.Artifact{
		{Category: extract.Depth, Name: "depth_frame_000001.npy", FrameIndex: &one},
		{Category: extract.Inertial, Name: "imu_data.csv"},
		{Category: extract.Depth, Name: "depth_frame_000000_viz.png", FrameIndex: &zero},
		{Category: extract.StereoLeft, Name: "rgb_left_frame_000001.png", FrameIndex: &one},
		{Category: extract.Depth, Name: "depth_frame_000000.npy", FrameIndex: &zero},
	}
	extract.SortArtifacts(items)
	want := []string{
		"rgb_left_frame_000001.png",
		"depth_frame_000000.npy",
		"depth_frame_000000_viz.png",
		"depth_frame_000001.npy",
		"imu_data.csv",
	}
	for i, name := range want {
		if items[i].Name != name {
			t.Fatalf("position %d = %s, want %s", i, items[i].Name, name)
		}
	}
}

func TestParseCategoryAndDirs(t *testing.T) {
	cases := map[string]extract.Category{
		"rgb_left":     extract.StereoLeft,
		"stereo-right": extract.StereoRight,
		"IMU":          extract.Inertial,
		"pointcloud":   extract.PointCloud,
	}
	for in, want := range cases {
		got, err := extract.ParseCategory(in)
		if err != nil || got != want {
			t.Fatalf("ParseCategory(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := extract.ParseCategory("thermal"); err == nil {
		t.Fatal("expected unknown category error")
	}
	for _, c := range extract.Categories() {
		back, ok := extract.CategoryForDir(c.Dir())
		if !ok || back != c {
			t.Fatalf("CategoryForDir(%q) = %q", c.Dir(), back)
		}
	}
}
