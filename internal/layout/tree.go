// Package layout builds renderable visual trees for cards. It is pure: no
// pixels, no I/O, no clocks. A Tree describes regions in fractional
// coordinates and typed content blocks; the render package turns trees into
// rasters, and tests inspect them directly.
package layout

import (
	"github.com/hualin/rednote-studio/internal/domain"
	"github.com/hualin/rednote-studio/internal/theme"
)

// RelRect is a rectangle in card-relative coordinates, each component in
// [0,1] of the card frame.
type RelRect struct {
	X, Y, W, H float64
}

// Tree is the renderable description of one card.
type Tree struct {
	Ratio      domain.AspectRatio
	Background theme.Fill
	Palette    theme.Palette
	Font       theme.FontSpec
	Regions    []Region
}

// Region is one painted area of the card, in paint order. Blocks flow top to
// bottom inside the region and clip at its bounds.
type Region struct {
	Rect  RelRect
	Fill  *theme.Fill
	PadPx float64
	// Inverse marks regions painted over dark imagery (overlay scrim); the
	// rasterizer switches to light text and inverted pill colors there.
	Inverse bool
	Blocks  []Block
}

// Block is a tagged content variant. The closed set of implementations keeps
// the rasterizer switch exhaustive.
type Block interface {
	block()
}

// Image fills its region with the referenced image, center-cropped to cover.
// Source is a remote URL or a memory:// handle; the sanitize pre-pass
// resolves it to pixels before any raster.
type Image struct {
	Source string
}

// Progress replaces the image area while an asynchronous generation task is
// in flight.
type Progress struct {
	Percent int
	Label   string
}

// Heading is the card title. DropCap enlarges the first rune, magazine-style.
type Heading struct {
	Text    string
	DropCap bool
}

// Paragraph is one flowed run of body text.
type Paragraph struct {
	Spans []Span
}

// List is a bulleted or ordered list.
type List struct {
	Ordered bool
	Items   [][]Span
}

// CodeBlock is a preformatted block rendered in the mono face on a tinted
// background.
type CodeBlock struct {
	Text string
}

// Quote is a pull-quote panel (collage layout).
type Quote struct {
	Text string
}

// Tags renders hashtag pills. Inline caps the first row; overflow wraps onto
// further rows and is never dropped. Inline <= 0 means no cap.
type Tags struct {
	Tags   []string
	Inline int
}

func (Image) block()     {}
func (Progress) block()  {}
func (Heading) block()   {}
func (Paragraph) block() {}
func (List) block()      {}
func (CodeBlock) block() {}
func (Quote) block()     {}
func (Tags) block()      {}

// Span is an inline run within a paragraph or list item.
type Span struct {
	Text string
	Bold bool
	Code bool
	Link string
}

// HasImage reports whether any region of the tree carries an Image block.
// Trees built without an available image must never contain one.
func (t *Tree) HasImage() bool {
	for _, r := range t.Regions {
		for _, b := range r.Blocks {
			if _, ok := b.(Image); ok {
				return true
			}
		}
	}
	return false
}

// ImageSources returns every image source in paint order. The sanitize
// pre-pass uses this to resolve all sources in one place.
func (t *Tree) ImageSources() []string {
	var srcs []string
	for _, r := range t.Regions {
		for _, b := range r.Blocks {
			if img, ok := b.(Image); ok {
				srcs = append(srcs, img.Source)
			}
		}
	}
	return srcs
}
