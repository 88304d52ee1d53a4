package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/hualin/rednote-studio/internal/domain"
	"github.com/hualin/rednote-studio/internal/layout"
	"github.com/hualin/rednote-studio/internal/theme"
)

// Options configures the raster output geometry.
type Options struct {
	// BaseWidth is the logical card width in px. Defaults to 800.
	BaseWidth int
	// Scale is the device scale factor applied for sharpness. Defaults to 2.
	Scale int
	// FontFile optionally points at a TTF that replaces the built-in Go
	// fonts (required for CJK glyph coverage in production).
	FontFile string
}

// Rasterizer turns visual trees into PNG bytes. It is the server-side
// capture path: one renderer for previews, single-card downloads, and batch
// export, with the image sanitize pre-pass applied before every capture.
type Rasterizer struct {
	fonts     *fontSet
	sanitizer *Sanitizer
	opts      Options

	// drawMu serializes raster passes: the cached truetype faces are not
	// safe for concurrent measuring and drawing.
	drawMu sync.Mutex
}

// New creates a rasterizer. handles may be nil when memory-backed image
// sources cannot occur.
func New(opts Options, handles HandleResolver) (*Rasterizer, error) {
	if opts.BaseWidth <= 0 {
		opts.BaseWidth = 800
	}
	if opts.Scale <= 0 {
		opts.Scale = 2
	}
	fonts, err := loadFonts(opts.FontFile)
	if err != nil {
		return nil, err
	}
	return &Rasterizer{
		fonts:     fonts,
		sanitizer: NewSanitizer(handles),
		opts:      opts,
	}, nil
}

// Rasterize resolves every image source in the tree, draws the card at
// BaseWidth×Scale, and returns PNG bytes. Asset failures degrade to
// placeholders inside the sanitize pass; only encoding problems surface as
// errors.
func (r *Rasterizer) Rasterize(ctx context.Context, tree *layout.Tree) ([]byte, error) {
	images := r.sanitizer.Resolve(ctx, tree)
	img := r.Draw(tree, images)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode card raster: %w", err)
	}
	return buf.Bytes(), nil
}

// Draw paints the tree using pre-resolved images. Exposed separately so
// tests can rasterize without any network.
func (r *Rasterizer) Draw(tree *layout.Tree, images map[string]image.Image) *image.NRGBA {
	r.drawMu.Lock()
	defer r.drawMu.Unlock()

	width := r.opts.BaseWidth * r.opts.Scale
	height := tree.Ratio.HeightFor(width)
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))

	fillRect(dst, dst.Bounds(), tree.Background)

	pass := &rasterPass{
		ras:    r,
		dst:    dst,
		tree:   tree,
		images: images,
		scale:  float64(r.opts.Scale),
	}
	for _, region := range tree.Regions {
		pass.drawRegion(region)
	}
	return dst
}

type rasterPass struct {
	ras    *Rasterizer
	dst    *image.NRGBA
	tree   *layout.Tree
	images map[string]image.Image
	scale  float64
}

func (p *rasterPass) px(v float64) int {
	return int(v*p.scale + 0.5)
}

func (p *rasterPass) regionRect(rel layout.RelRect) image.Rectangle {
	b := p.dst.Bounds()
	w := float64(b.Dx())
	h := float64(b.Dy())
	return image.Rect(
		int(rel.X*w+0.5),
		int(rel.Y*h+0.5),
		int((rel.X+rel.W)*w+0.5),
		int((rel.Y+rel.H)*h+0.5),
	)
}

func (p *rasterPass) drawRegion(region layout.Region) {
	rect := p.regionRect(region.Rect)
	if region.Fill != nil {
		fillRect(p.dst, rect, *region.Fill)
	}

	content := rect.Inset(p.px(region.PadPx))
	if content.Empty() {
		content = rect
	}

	textColor := p.tree.Palette.Text
	if region.Inverse {
		textColor = color.NRGBA{0xff, 0xff, 0xff, 0xff}
	}

	y := content.Min.Y
	for _, block := range region.Blocks {
		if y >= content.Max.Y {
			// Long captions clip within the frame; they never stretch it.
			break
		}
		switch b := block.(type) {
		case layout.Image:
			drawCover(p.dst, rect, p.images[b.Source])
		case layout.Progress:
			p.drawProgress(rect, b)
		case layout.Heading:
			y = p.drawHeading(content, y, b, textColor)
		case layout.Paragraph:
			y = p.drawSpans(content, y, b.Spans, p.tree.Font.BodyPx, textColor, region.Inverse)
			y += p.px(p.tree.Font.BodyPx * 0.6)
		case layout.List:
			y = p.drawList(content, y, b, textColor, region.Inverse)
		case layout.CodeBlock:
			y = p.drawCodeBlock(content, y, b, region.Inverse)
		case layout.Quote:
			y = p.drawQuote(content, y, b)
		case layout.Tags:
			y = p.drawTags(content, y, b, region.Inverse)
		}
	}
}

// ---- text flow ----

// token splits text into wrap units: latin words, single CJK runes, single
// spaces, and explicit newlines. CJK text has no spaces, so wrapping falls
// back to per-rune breaks there.
func tokenize(s string) []string {
	var toks []string
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			toks = append(toks, word.String())
			word.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '\n':
			flush()
			toks = append(toks, "\n")
		case r == ' ' || r == '\t':
			flush()
			toks = append(toks, " ")
		case isWide(r):
			flush()
			toks = append(toks, string(r))
		default:
			word.WriteRune(r)
		}
	}
	flush()
	return toks
}

func isWide(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r) ||
		(r >= 0x3000 && r <= 0x303f) || // CJK punctuation
		(r >= 0xff00 && r <= 0xffef) // fullwidth forms
}

func measure(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

// drawSpans flows styled spans through the content box with greedy wrapping,
// returning the y below the last drawn line. Text past the bottom clips.
func (p *rasterPass) drawSpans(content image.Rectangle, y int, spans []layout.Span, sizePx float64, textColor color.NRGBA, inverse bool) int {
	size := sizePx * p.scale
	lineHeight := int(size * 1.55)
	x := content.Min.X

	for _, span := range spans {
		face := p.ras.fonts.face(p.tree.Font.Family, span.Bold, span.Code, size)
		col := textColor
		if span.Link != "" {
			col = p.tree.Palette.Primary
			if inverse {
				col = p.tree.Palette.Secondary
			}
		}
		if span.Code {
			col = p.tree.Palette.Accent
		}

		for _, tok := range tokenize(span.Text) {
			if tok == "\n" {
				x = content.Min.X
				y += lineHeight
				continue
			}
			w := measure(face, tok)
			if x+w > content.Max.X && x > content.Min.X {
				x = content.Min.X
				y += lineHeight
				if tok == " " {
					continue
				}
			}
			if y+lineHeight > content.Max.Y {
				return content.Max.Y
			}
			p.drawString(face, tok, x, y, size, col)
			if span.Link != "" && tok != " " {
				underline := image.Rect(x, y+int(size*1.15), x+w, y+int(size*1.15)+p.ras.opts.Scale)
				fillRect(p.dst, underline, theme.Flat(col))
			}
			x += w
		}
	}
	return y + lineHeight
}

func (p *rasterPass) drawString(face font.Face, s string, x, y int, size float64, col color.NRGBA) {
	ascent := face.Metrics().Ascent.Ceil()
	d := &font.Drawer{
		Dst:  p.dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y+ascent),
	}
	d.DrawString(s)
}

// ---- block renderers ----

func (p *rasterPass) drawHeading(content image.Rectangle, y int, h layout.Heading, textColor color.NRGBA) int {
	size := p.tree.Font.TitlePx * p.scale
	runes := []rune(h.Text)

	if h.DropCap && len(runes) > 1 {
		capSize := size * 2.1
		capFace := p.ras.fonts.face(p.tree.Font.Family, true, false, capSize)
		capText := string(runes[0])
		capW := measure(capFace, capText)
		p.drawString(capFace, capText, content.Min.X, y, capSize, p.tree.Palette.Primary)

		rest := layout.Span{Text: string(runes[1:]), Bold: true}
		inset := content
		inset.Min.X += capW + p.px(6)
		bottom := p.drawSpans(inset, y+int(capSize*0.45), []layout.Span{rest}, p.tree.Font.TitlePx, textColor, false)
		capBottom := y + int(capSize*1.55)
		if capBottom > bottom {
			bottom = capBottom
		}
		return bottom + p.px(p.tree.Font.TitlePx*0.4)
	}

	bottom := p.drawSpans(content, y, []layout.Span{{Text: h.Text, Bold: true}}, p.tree.Font.TitlePx, textColor, false)
	return bottom + p.px(p.tree.Font.TitlePx*0.4)
}

func (p *rasterPass) drawList(content image.Rectangle, y int, l layout.List, textColor color.NRGBA, inverse bool) int {
	indent := p.px(p.tree.Font.BodyPx * 1.4)
	for i, item := range l.Items {
		if y >= content.Max.Y {
			break
		}
		marker := "•"
		if l.Ordered {
			marker = fmt.Sprintf("%d.", i+1)
		}
		face := p.ras.fonts.face(p.tree.Font.Family, false, false, p.tree.Font.BodyPx*p.scale)
		p.drawString(face, marker, content.Min.X, y, p.tree.Font.BodyPx*p.scale, p.tree.Palette.Primary)

		inset := content
		inset.Min.X += indent
		y = p.drawSpans(inset, y, item, p.tree.Font.BodyPx, textColor, inverse)
		y += p.px(p.tree.Font.BodyPx * 0.25)
	}
	return y + p.px(p.tree.Font.BodyPx*0.35)
}

func (p *rasterPass) drawCodeBlock(content image.Rectangle, y int, c layout.CodeBlock, inverse bool) int {
	size := p.tree.Font.BodyPx * 0.92
	lineHeight := int(size * p.scale * 1.5)
	lines := strings.Split(c.Text, "\n")

	boxH := lineHeight*len(lines) + p.px(16)
	box := image.Rect(content.Min.X, y, content.Max.X, y+boxH)
	if box.Max.Y > content.Max.Y {
		box.Max.Y = content.Max.Y
	}
	bg := p.tree.Palette.Secondary
	if inverse {
		bg = color.NRGBA{0xff, 0xff, 0xff, 0x28}
	}
	fillRoundedRect(p.dst, box, p.px(6), bg)

	face := p.ras.fonts.face(p.tree.Font.Family, false, true, size*p.scale)
	ty := y + p.px(8)
	for _, line := range lines {
		if ty+lineHeight > box.Max.Y {
			break
		}
		p.drawString(face, line, content.Min.X+p.px(10), ty, size*p.scale, p.tree.Palette.Text)
		ty += lineHeight
	}
	return box.Max.Y + p.px(p.tree.Font.BodyPx*0.6)
}

func (p *rasterPass) drawQuote(content image.Rectangle, y int, q layout.Quote) int {
	markSize := p.tree.Font.TitlePx * 1.6 * p.scale
	markFace := p.ras.fonts.face(p.tree.Font.Family, true, false, markSize)
	p.drawString(markFace, "“", content.Min.X, y, markSize, p.tree.Palette.Primary)

	inset := content
	inset.Min.Y = y + int(markSize*0.9)
	return p.drawSpans(inset, inset.Min.Y, []layout.Span{{Text: q.Text, Bold: true}},
		p.tree.Font.BodyPx*1.1, p.tree.Palette.Text, false)
}

func (p *rasterPass) drawTags(content image.Rectangle, y int, t layout.Tags, inverse bool) int {
	size := p.tree.Font.TagPx * p.scale
	face := p.ras.fonts.face(p.tree.Font.Family, false, false, size)
	padX := p.px(10)
	padY := p.px(5)
	gap := p.px(8)
	pillH := int(size) + 2*padY

	pillBG := p.tree.Palette.Secondary
	pillFG := p.tree.Palette.Primary
	if inverse {
		pillBG = color.NRGBA{0xff, 0xff, 0xff, 0x3c}
		pillFG = color.NRGBA{0xff, 0xff, 0xff, 0xff}
	}

	x := content.Min.X
	inRow := 0
	for _, tag := range t.Tags {
		w := measure(face, tag) + 2*padX
		wrap := x+w > content.Max.X && x > content.Min.X
		if t.Inline > 0 && inRow >= t.Inline {
			// Inline capacity reached: overflow wraps to the next row
			// instead of being dropped.
			wrap = true
		}
		if wrap {
			x = content.Min.X
			y += pillH + gap
			inRow = 0
		}
		if y+pillH > content.Max.Y {
			break
		}
		fillRoundedRect(p.dst, image.Rect(x, y, x+w, y+pillH), pillH/2, pillBG)
		p.drawString(face, tag, x+padX, y+padY, size, pillFG)
		x += w + gap
		inRow++
	}
	return y + pillH + gap
}

func (p *rasterPass) drawProgress(rect image.Rectangle, b layout.Progress) {
	fillRect(p.dst, rect, theme.Gradient(
		color.NRGBA{0xf4, 0xf5, 0xf7, 0xff},
		color.NRGBA{0xe8, 0xea, 0xee, 0xff},
		180,
	))

	labelSize := p.tree.Font.BodyPx * p.scale
	face := p.ras.fonts.face(p.tree.Font.Family, true, false, labelSize)
	label := b.Label
	labelW := measure(face, label)
	cx := rect.Min.X + rect.Dx()/2
	cy := rect.Min.Y + rect.Dy()/2
	p.drawString(face, label, cx-labelW/2, cy-p.px(26), labelSize, p.tree.Palette.Primary)

	barW := rect.Dx() * 3 / 5
	barH := p.px(8)
	bar := image.Rect(cx-barW/2, cy, cx+barW/2, cy+barH)
	fillRoundedRect(p.dst, bar, barH/2, color.NRGBA{0xd5, 0xd9, 0xde, 0xff})
	filled := bar
	filled.Max.X = bar.Min.X + bar.Dx()*b.Percent/100
	fillRoundedRect(p.dst, filled, barH/2, p.tree.Palette.Primary)

	pctFace := p.ras.fonts.face(p.tree.Font.Family, false, false, p.tree.Font.TagPx*p.scale)
	pct := fmt.Sprintf("%d%%", b.Percent)
	pctW := measure(pctFace, pct)
	p.drawString(pctFace, pct, cx-pctW/2, cy+barH+p.px(8), p.tree.Font.TagPx*p.scale, p.tree.Palette.Text)
}

// RatioOf reports the pixel dimensions the rasterizer will produce for a
// ratio, exposed for handlers that size responses up front.
func (r *Rasterizer) RatioOf(ratio domain.AspectRatio) (w, h int) {
	w = r.opts.BaseWidth * r.opts.Scale
	return w, ratio.HeightFor(w)
}
