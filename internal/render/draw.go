package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"

	"github.com/hualin/rednote-studio/internal/theme"
)

// fillRect paints a flat or gradient fill over rect. Gradient angles follow
// the CSS convention: 0° points up, angles grow clockwise, so 180° runs top
// to bottom and 135° runs toward the bottom-right corner.
func fillRect(dst *image.NRGBA, rect image.Rectangle, fill theme.Fill) {
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}

	if fill.Kind == theme.FillFlat {
		draw.Draw(dst, rect, image.NewUniform(fill.Color), image.Point{}, draw.Over)
		return
	}

	rad := fill.AngleDeg * math.Pi / 180
	dirX, dirY := math.Sin(rad), -math.Cos(rad)

	w := float64(rect.Dx())
	h := float64(rect.Dy())
	// Project rect corners onto the gradient axis to normalize t into [0,1].
	min := math.Inf(1)
	max := math.Inf(-1)
	for _, c := range [][2]float64{{0, 0}, {w, 0}, {0, h}, {w, h}} {
		p := c[0]*dirX + c[1]*dirY
		min = math.Min(min, p)
		max = math.Max(max, p)
	}
	span := max - min
	if span == 0 {
		span = 1
	}

	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			px := float64(x - rect.Min.X)
			py := float64(y - rect.Min.Y)
			t := (px*dirX + py*dirY - min) / span
			blendOver(dst, x, y, lerpColor(fill.From, fill.To, t))
		}
	}
}

// blendOver composites src over the destination pixel, honoring src alpha.
func blendOver(dst *image.NRGBA, x, y int, src color.NRGBA) {
	if src.A == 0xff {
		dst.SetNRGBA(x, y, src)
		return
	}
	if src.A == 0 {
		return
	}
	base := dst.NRGBAAt(x, y)
	a := uint32(src.A)
	inv := 255 - a
	dst.SetNRGBA(x, y, color.NRGBA{
		R: uint8((uint32(src.R)*a + uint32(base.R)*inv) / 255),
		G: uint8((uint32(src.G)*a + uint32(base.G)*inv) / 255),
		B: uint8((uint32(src.B)*a + uint32(base.B)*inv) / 255),
		A: 0xff,
	})
}

func lerpColor(from, to color.NRGBA, t float64) color.NRGBA {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	lerp := func(a, b uint8) uint8 {
		return uint8(float64(a) + (float64(b)-float64(a))*t)
	}
	return color.NRGBA{
		R: lerp(from.R, to.R),
		G: lerp(from.G, to.G),
		B: lerp(from.B, to.B),
		A: lerp(from.A, to.A),
	}
}

// drawCover pastes img into rect, center-cropped to cover the whole area
// (the object-fit: cover of the browser rendition).
func drawCover(dst *image.NRGBA, rect image.Rectangle, img image.Image) {
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() || img == nil {
		return
	}
	fitted := imaging.Fill(img, rect.Dx(), rect.Dy(), imaging.Center, imaging.Lanczos)
	draw.Draw(dst, rect, fitted, fitted.Bounds().Min, draw.Src)
}

// fillRoundedRect paints a flat rounded rectangle (tag pills, progress bars).
func fillRoundedRect(dst *image.NRGBA, rect image.Rectangle, radius int, col color.NRGBA) {
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	if radius <= 0 {
		draw.Draw(dst, rect, image.NewUniform(col), image.Point{}, draw.Over)
		return
	}
	maxR := rect.Dx() / 2
	if rect.Dy()/2 < maxR {
		maxR = rect.Dy() / 2
	}
	if radius > maxR {
		radius = maxR
	}

	r2 := radius * radius
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			// Distance from the nearest corner center, if inside a corner box.
			cx, cy := 0, 0
			switch {
			case x < rect.Min.X+radius && y < rect.Min.Y+radius:
				cx, cy = rect.Min.X+radius, rect.Min.Y+radius
			case x >= rect.Max.X-radius && y < rect.Min.Y+radius:
				cx, cy = rect.Max.X-radius-1, rect.Min.Y+radius
			case x < rect.Min.X+radius && y >= rect.Max.Y-radius:
				cx, cy = rect.Min.X+radius, rect.Max.Y-radius-1
			case x >= rect.Max.X-radius && y >= rect.Max.Y-radius:
				cx, cy = rect.Max.X-radius-1, rect.Max.Y-radius-1
			default:
				blendOver(dst, x, y, col)
				continue
			}
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r2 {
				blendOver(dst, x, y, col)
			}
		}
	}
}

// placeholderImage builds the substitute graphic used when an image source
// cannot be fetched or decoded: a soft gray gradient with a framed diagonal,
// deliberately neutral so a failed asset never looks like a broken render.
func placeholderImage(w, h int) image.Image {
	if w <= 0 {
		w = 800
	}
	if h <= 0 {
		h = 600
	}
	img := imaging.New(w, h, color.NRGBA{0xec, 0xec, 0xee, 0xff})
	nrgba := img

	fillRect(nrgba, nrgba.Bounds(), theme.Gradient(
		color.NRGBA{0xe4, 0xe6, 0xe9, 0xff},
		color.NRGBA{0xcf, 0xd3, 0xd8, 0xff},
		160,
	))

	border := color.NRGBA{0xb8, 0xbd, 0xc4, 0xff}
	inset := nrgba.Bounds().Inset(w / 40)
	for x := inset.Min.X; x < inset.Max.X; x++ {
		nrgba.SetNRGBA(x, inset.Min.Y, border)
		nrgba.SetNRGBA(x, inset.Max.Y-1, border)
	}
	for y := inset.Min.Y; y < inset.Max.Y; y++ {
		nrgba.SetNRGBA(inset.Min.X, y, border)
		nrgba.SetNRGBA(inset.Max.X-1, y, border)
	}
	// Diagonals, picture-frame style.
	steps := inset.Dx()
	for i := 0; i < steps; i++ {
		t := float64(i) / float64(steps)
		x := inset.Min.X + i
		y1 := inset.Min.Y + int(t*float64(inset.Dy()-1))
		y2 := inset.Max.Y - 1 - int(t*float64(inset.Dy()-1))
		nrgba.SetNRGBA(x, y1, border)
		nrgba.SetNRGBA(x, y2, border)
	}
	return img
}
