package extract

import (
	"image"
	"image/color"
	"math"

	"svoextract/internal/framesource"
)

// Colormap maps an 8-bit intensity level to a colour.
type Colormap func(level uint8) color.NRGBA

// Jet is the classic blue-cyan-yellow-red ramp.
func Jet(level uint8) color.NRGBA {
	x := float64(level) / 255
	return rgb(
		clamp01(1.5-math.Abs(4*x-3)),
		clamp01(1.5-math.Abs(4*x-2)),
		clamp01(1.5-math.Abs(4*x-1)),
	)
}

var viridisAnchors = [...][3]float64{
	{68, 1, 84},
	{72, 35, 116},
	{64, 67, 135},
	{52, 94, 141},
	{41, 120, 142},
	{32, 144, 140},
	{34, 167, 132},
	{68, 190, 112},
	{121, 209, 81},
	{189, 222, 38},
	{253, 231, 37},
}

// Viridis interpolates the perceptually uniform viridis palette.
func Viridis(level uint8) color.NRGBA {
	pos := float64(level) / 255 * float64(len(viridisAnchors)-1)
	lo := int(math.Floor(pos))
	if lo >= len(viridisAnchors)-1 {
		lo = len(viridisAnchors) - 2
	}
	frac := pos - float64(lo)
	a, b := viridisAnchors[lo], viridisAnchors[lo+1]
	mix := func(i int) uint8 {
		return uint8(math.Round(a[i] + (b[i]-a[i])*frac))
	}
	return color.NRGBA{R: mix(0), G: mix(1), B: mix(2), A: 255}
}

// Turbo uses the polynomial approximation of the turbo palette.
func Turbo(level uint8) color.NRGBA {
	x := float64(level) / 255
	r := 0.13572138 + x*(4.61539260+x*(-42.66032258+x*(132.13108234+x*(-152.94239396+x*59.28637943))))
	g := 0.09140261 + x*(2.19418839+x*(4.84296658+x*(-14.18503333+x*(4.27729857+x*2.82956604))))
	b := 0.10667330 + x*(12.64194608+x*(-60.58204836+x*(110.36276771+x*(-89.90310912+x*27.34824973))))
	return rgb(clamp01(r), clamp01(g), clamp01(b))
}

// Colorize normalizes channel 0 of m over its finite min-max range and maps it
// through cmap. Non-finite values render black. A constant field maps to
// level 0.
func Colorize(m *framesource.Measure, cmap Colormap) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	lo, hi := math.Inf(1), math.Inf(-1)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			v := float64(m.At(x, y, 0))
			if !finite(v) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	span := hi - lo
	black := color.NRGBA{A: 255}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			v := float64(m.At(x, y, 0))
			if !finite(v) {
				img.SetNRGBA(x, y, black)
				continue
			}
			var level uint8
			if span > 0 {
				level = uint8(math.Round((v - lo) / span * 255))
			}
			img.SetNRGBA(x, y, cmap(level))
		}
	}
	return img
}

// NormalsImage maps unit normals in [-1, 1] to RGB via (n+1)*127.5.
func NormalsImage(m *framesource.Measure) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	channels := min(m.Channels, 3)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			var px [3]uint8
			for c := 0; c < channels; c++ {
				v := float64(m.At(x, y, c))
				if !finite(v) {
					px = [3]uint8{}
					break
				}
				px[c] = uint8(math.Round(math.Max(0, math.Min(255, (v+1)*127.5))))
			}
			img.SetNRGBA(x, y, color.NRGBA{R: px[0], G: px[1], B: px[2], A: 255})
		}
	}
	return img
}

func rgb(r, g, b float64) color.NRGBA {
	return color.NRGBA{
		R: uint8(math.Round(r * 255)),
		G: uint8(math.Round(g * 255)),
		B: uint8(math.Round(b * 255)),
		A: 255,
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
