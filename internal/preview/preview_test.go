package preview_test

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"
	"testing"

	"svoextract/internal/framesource"
	"svoextract/internal/framesource/synthetic"
	"svoextract/internal/preview"
	"svoextract/internal/services"
)

func newService(opener framesource.Opener, maxWidth int) *preview.Service {
	return preview.New(opener, preview.Options{MaxWidth: maxWidth, JPEGQuality: 90}, nil)
}

func TestFrameRendersEveryView(t *testing.T) {
	svc := newService(synthetic.New(synthetic.DefaultOptions()), 800)
	for _, view := range preview.Views() {
		res := svc.Frame(context.Background(), "rec.svo2", 3, view, framesource.DepthUltra)
		if !res.OK {
			t.Fatalf("%s failed: %#v", view, res.Error)
		}
		if res.Frame != 3 || res.TotalFrames != 30 {
			t.Fatalf("%s: unexpected frame info %d/%d", view, res.Frame, res.TotalFrames)
		}
		if !strings.HasPrefix(res.DataURI, "data:image/jpeg;base64,") {
			t.Fatalf("%s: unexpected data uri prefix", view)
		}
		img, err := jpeg.Decode(bytes.NewReader(res.JPEG))
		if err != nil {
			t.Fatalf("%s: decode jpeg: %v", view, err)
		}
		if img.Bounds().Size() != (image.Point{X: 32, Y: 24}) {
			t.Fatalf("%s: unexpected size %v", view, img.Bounds().Size())
		}
	}
}

func TestFrameClampsIndexAndFitsWidth(t *testing.T) {
	svc := newService(synthetic.New(synthetic.DefaultOptions()), 16)
	ctx := context.Background()

	high := svc.Frame(ctx, "rec.svo2", 500, preview.ViewRGBLeft, "")
	if !high.OK || high.Frame != 29 {
		t.Fatalf("expected clamp to last frame, got %#v", high)
	}
	if high.Width != 16 || high.Height != 12 {
		t.Fatalf("expected 16x12 after fit, got %dx%d", high.Width, high.Height)
	}
	low := svc.Frame(ctx, "rec.svo2", -4, preview.ViewDepth, "")
	if !low.OK || low.Frame != 0 {
		t.Fatalf("expected clamp to first frame, got %#v", low)
	}
}

func TestFrameErrorsAreTagged(t *testing.T) {
	ctx := context.Background()

	empty := synthetic.DefaultOptions()
	empty.Frames = 0
	res := newService(synthetic.New(empty), 800).Frame(ctx, "rec.svo2", 0, preview.ViewRGBLeft, "")
	if res.OK || res.Error == nil || res.Error.Kind != services.KindNotFound {
		t.Fatalf("expected not_found, got %#v", res)
	}

	missing := newService(synthetic.FileOpener{}, 800).Info(ctx, filepath.Join(t.TempDir(), "absent.svo2"))
	if missing.OK || missing.Error == nil || missing.Error.Kind != services.KindOpenFailed {
		t.Fatalf("expected open_failed, got %#v", missing)
	}

	noIMU := synthetic.DefaultOptions()
	noIMU.NoInertial = true
	inertial := newService(synthetic.New(noIMU), 800).Inertial(ctx, "rec.svo2", 2)
	if inertial.OK || inertial.Error == nil || inertial.Error.Kind != services.KindUnavailable {
		t.Fatalf("expected unavailable, got %#v", inertial)
	}
}

func TestInfoInertialAndThumbnail(t *testing.T) {
	svc := newService(synthetic.New(synthetic.DefaultOptions()), 800)
	ctx := context.Background()

	info := svc.Info(ctx, "rec.svo2")
	if !info.OK || info.TotalFrames != 30 {
		t.Fatalf("unexpected info: %#v", info)
	}
	sample := svc.Inertial(ctx, "rec.svo2", 4)
	if !sample.OK || sample.Sample == nil || sample.Sample.TimestampMs != 4*33 {
		t.Fatalf("unexpected inertial: %#v", sample)
	}
	thumb := svc.Thumbnail(ctx, "rec.svo2")
	if !thumb.OK || thumb.Frame != 15 || thumb.View != preview.ViewRGBLeft {
		t.Fatalf("unexpected thumbnail: %#v", thumb)
	}
}

func TestSessionReopensOnDepthModeChange(t *testing.T) {
	opener := synthetic.New(synthetic.DefaultOptions())
	svc := newService(opener, 800)
	sess := svc.NewSession("rec.svo2")
	defer sess.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if res := sess.Frame(ctx, i, preview.ViewDepth, framesource.DepthUltra); !res.OK {
			t.Fatalf("frame %d failed: %#v", i, res.Error)
		}
	}
	if opener.Opens() != 1 {
		t.Fatalf("expected handle reuse, got %d opens", opener.Opens())
	}
	if res := sess.Frame(ctx, 0, preview.ViewDepth, framesource.DepthPerformance); !res.OK {
		t.Fatalf("frame after mode change failed: %#v", res.Error)
	}
	if opener.Opens() != 2 {
		t.Fatalf("expected reopen after mode change, got %d opens", opener.Opens())
	}
	if res := sess.Inertial(ctx, 1); !res.OK {
		t.Fatalf("inertial failed: %#v", res.Error)
	}
	if opener.Opens() != 2 {
		t.Fatalf("inertial should reuse the handle, got %d opens", opener.Opens())
	}
}

type panicSource struct{ framesource.Source }

func (panicSource) TotalFrames() int { panic("decoder crashed") }
func (panicSource) Close() error     { return nil }

func TestFramePanicsBecomeResults(t *testing.T) {
	opener := framesource.OpenerFunc(func(context.Context, string, framesource.DepthMode) (framesource.Source, error) {
		return panicSource{}, nil
	})
	res := newService(opener, 800).Frame(context.Background(), "rec.svo2", 0, preview.ViewRGBLeft, "")
	if res.OK || res.Error == nil || res.Error.Kind != services.KindExtraction {
		t.Fatalf("expected tagged extraction error, got %#v", res)
	}
}

func TestParseView(t *testing.T) {
	cases := map[string]preview.View{
		"":            preview.ViewRGBLeft,
		"RIGHT":       preview.ViewRGBRight,
		"point-cloud": preview.ViewPointCloud,
		"normals":     preview.ViewNormals,
	}
	for input, want := range cases {
		got, err := preview.ParseView(input)
		if err != nil || got != want {
			t.Fatalf("ParseView(%q) = %q, %v", input, got, err)
		}
	}
	if _, err := preview.ParseView("thermal"); err == nil {
		t.Fatal("expected error for unknown view")
	}
}
