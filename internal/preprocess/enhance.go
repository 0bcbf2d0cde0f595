package preprocess

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"slices"

	"golang.org/x/image/draw"
)

const upscaleFactor = 3

// enhance applies one named pass to src.
func enhance(pass string, src image.Image, maxPixels int) (image.Image, error) {
	switch pass {
	case PassOriginal:
		return src, nil
	case PassContrast:
		return threshold(stretch(grayscale(src))), nil
	case PassDenoise:
		return median(grayscale(src)), nil
	case PassUpscale:
		return upscale(grayscale(src), maxPixels), nil
	default:
		return nil, fmt.Errorf("unknown pass %q", pass)
	}
}

func grayscale(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok {
		return g
	}
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(x-b.Min.X, y-b.Min.Y, color.GrayModel.Convert(src.At(x, y)))
		}
	}
	return dst
}

// stretch maps the darkest pixel to 0 and the lightest to 255.
func stretch(g *image.Gray) *image.Gray {
	lo, hi := uint8(255), uint8(0)
	for _, v := range g.Pix {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	out := image.NewGray(g.Rect)
	if hi <= lo {
		copy(out.Pix, g.Pix)
		return out
	}
	span := float64(hi - lo)
	for i, v := range g.Pix {
		out.Pix[i] = uint8(math.Round(float64(v-lo) * 255 / span))
	}
	return out
}

// threshold binarizes g at the Otsu level.
func threshold(g *image.Gray) *image.Gray {
	level := otsu(g)
	out := image.NewGray(g.Rect)
	for i, v := range g.Pix {
		if v > level {
			out.Pix[i] = 255
		}
	}
	return out
}

func otsu(g *image.Gray) uint8 {
	var hist [256]int
	for _, v := range g.Pix {
		hist[v]++
	}
	total := len(g.Pix)
	if total == 0 {
		return 127
	}

	var sum float64
	for i, n := range hist {
		sum += float64(i * n)
	}

	var (
		sumB, best float64
		weightB    int
		level      uint8
	)
	for i, n := range hist {
		weightB += n
		if weightB == 0 {
			continue
		}
		weightF := total - weightB
		if weightF == 0 {
			break
		}
		sumB += float64(i * n)
		meanB := sumB / float64(weightB)
		meanF := (sum - sumB) / float64(weightF)
		between := float64(weightB) * float64(weightF) * (meanB - meanF) * (meanB - meanF)
		if between > best {
			best = between
			level = uint8(i)
		}
	}
	return level
}

// median applies a 3x3 median filter. Edge pixels use the clamped window.
func median(g *image.Gray) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := image.NewGray(g.Rect)
	window := make([]uint8, 0, 9)
	for y := range h {
		for x := range w {
			window = window[:0]
			for dy := -1; dy <= 1; dy++ {
				yy := min(max(y+dy, 0), h-1)
				for dx := -1; dx <= 1; dx++ {
					xx := min(max(x+dx, 0), w-1)
					window = append(window, g.Pix[yy*g.Stride+xx])
				}
			}
			slices.Sort(window)
			out.Pix[y*out.Stride+x] = window[len(window)/2]
		}
	}
	return out
}

// upscale enlarges g with Catmull-Rom, shrinking the factor so the result
// stays within maxPixels.
func upscale(g *image.Gray, maxPixels int) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if w == 0 || h == 0 {
		return g
	}
	factor := math.Min(upscaleFactor, math.Sqrt(float64(maxPixels)/float64(w*h)))
	if factor <= 1 {
		return g
	}
	dst := image.NewGray(image.Rect(0, 0, int(float64(w)*factor), int(float64(h)*factor)))
	draw.CatmullRom.Scale(dst, dst.Rect, g, g.Rect, draw.Src, nil)
	return dst
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
