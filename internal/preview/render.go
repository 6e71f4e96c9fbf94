package preview

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"

	"svoextract/internal/extract"
	"svoextract/internal/framesource"
)

// View names a renderable preview.
type View string

const (
	ViewRGBLeft    View = "rgb_left"
	ViewRGBRight   View = "rgb_right"
	ViewDepth      View = "depth"
	ViewConfidence View = "confidence"
	ViewNormals    View = "normals"
	ViewPointCloud View = "point_cloud"
)

// Views lists every preview in display order.
func Views() []View {
	return []View{ViewRGBLeft, ViewRGBRight, ViewDepth, ViewConfidence, ViewNormals, ViewPointCloud}
}

// ParseView accepts a view name in any case. Blank input yields rgb_left.
func ParseView(value string) (View, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	trimmed = strings.ReplaceAll(trimmed, "-", "_")
	switch trimmed {
	case "":
		return ViewRGBLeft, nil
	case "left":
		return ViewRGBLeft, nil
	case "right":
		return ViewRGBRight, nil
	case "pointcloud":
		return ViewPointCloud, nil
	}
	for _, v := range Views() {
		if string(v) == trimmed {
			return v, nil
		}
	}
	return "", fmt.Errorf("unsupported preview view %q", value)
}

func renderView(frame framesource.Frame, view View) (*image.NRGBA, error) {
	switch view {
	case ViewRGBLeft:
		return frame.RetrieveImage(framesource.ViewLeft)
	case ViewRGBRight:
		return frame.RetrieveImage(framesource.ViewRight)
	case ViewDepth:
		return colorized(frame, framesource.MeasureDepth, extract.Jet)
	case ViewConfidence:
		return colorized(frame, framesource.MeasureConfidence, extract.Viridis)
	case ViewPointCloud:
		return colorized(frame, framesource.MeasureDepth, extract.Turbo)
	case ViewNormals:
		m, err := frame.RetrieveMeasure(framesource.MeasureNormals)
		if err != nil {
			return nil, err
		}
		return extract.NormalsImage(m), nil
	}
	return nil, fmt.Errorf("unsupported preview view %q", view)
}

func colorized(frame framesource.Frame, kind framesource.MeasureKind, cmap extract.Colormap) (*image.NRGBA, error) {
	m, err := frame.RetrieveMeasure(kind)
	if err != nil {
		return nil, err
	}
	return extract.Colorize(m, cmap), nil
}

// encodeJPEG fits img to maxWidth with Lanczos resampling and encodes it.
func encodeJPEG(img image.Image, maxWidth, quality int) ([]byte, image.Point, error) {
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, image.Point{}, err
	}
	return buf.Bytes(), img.Bounds().Size(), nil
}

// DataURI formats JPEG bytes for direct embedding.
func DataURI(jpeg []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)
}
