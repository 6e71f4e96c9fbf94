package extract

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"

	"svoextract/internal/framesource"
)

// WritePLY serializes an XYZ(RGBA) measure as ASCII PLY. Points with a
// non-finite coordinate or packed colour are dropped. Measures without a
// colour channel render every vertex opaque white. The header is always
// written, so a cloud with no valid points yields "element vertex 0".
func WritePLY(w io.Writer, m *framesource.Measure) (int, error) {
	type vertex struct {
		x, y, z float32
		r, g, b uint8
	}
	if m.Channels < 3 {
		return 0, fmt.Errorf("point cloud needs at least 3 channels, got %d", m.Channels)
	}
	points := make([]vertex, 0, m.Width*m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			px, py, pz := m.At(x, y, 0), m.At(x, y, 1), m.At(x, y, 2)
			if !finite(float64(px)) || !finite(float64(py)) || !finite(float64(pz)) {
				continue
			}
			r, g, b := uint8(255), uint8(255), uint8(255)
			if m.Channels >= 4 {
				packed := m.At(x, y, 3)
				if !finite(float64(packed)) {
					continue
				}
				r, g, b = UnpackColor(packed)
			}
			points = append(points, vertex{px, py, pz, r, g, b})
		}
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ply\nformat ascii 1.0\nelement vertex %d\n", len(points))
	bw.WriteString("property float x\nproperty float y\nproperty float z\n")
	bw.WriteString("property uchar red\nproperty uchar green\nproperty uchar blue\n")
	bw.WriteString("end_header\n")
	for _, p := range points {
		bw.WriteString(formatFloat32(p.x))
		bw.WriteByte(' ')
		bw.WriteString(formatFloat32(p.y))
		bw.WriteByte(' ')
		bw.WriteString(formatFloat32(p.z))
		fmt.Fprintf(bw, " %d %d %d\n", p.r, p.g, p.b)
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	return len(points), nil
}

// UnpackColor reads red, green and blue from bits 16-23, 8-15 and 0-7 of the
// float's bit pattern.
func UnpackColor(packed float32) (r, g, b uint8) {
	bits := math.Float32bits(packed)
	return uint8(bits >> 16), uint8(bits >> 8), uint8(bits)
}

func formatFloat32(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}
