package render

import (
	"fmt"
	"os"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/hualin/rednote-studio/internal/domain"
)

// fontSet holds parsed typefaces and a face cache keyed by size. Faces are
// not safe for concurrent use while drawing, so the rasterizer guards each
// raster pass with its own lock.
type fontSet struct {
	regular map[domain.FontFamily]*truetype.Font
	bold    map[domain.FontFamily]*truetype.Font
	mono    *truetype.Font

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

type faceKey struct {
	family domain.FontFamily
	bold   bool
	mono   bool
	size   float64
}

// loadFonts parses the embedded Go fonts, one pair per family. When ttfPath
// is set (configurable, e.g. a CJK-capable face) that file replaces the
// regular weight of every family so Chinese captions render with real glyphs.
func loadFonts(ttfPath string) (*fontSet, error) {
	parse := func(data []byte) (*truetype.Font, error) {
		return truetype.Parse(data)
	}

	regular, err := parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse regular font: %w", err)
	}
	bold, err := parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bold font: %w", err)
	}
	italic, err := parse(goitalic.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse italic font: %w", err)
	}
	boldItalic, err := parse(gobolditalic.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bold italic font: %w", err)
	}
	mono, err := parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mono font: %w", err)
	}
	monoBold, err := parse(gomonobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mono bold font: %w", err)
	}

	fs := &fontSet{
		regular: map[domain.FontFamily]*truetype.Font{
			domain.FontSans:  regular,
			domain.FontSerif: italic,
			domain.FontMono:  mono,
		},
		bold: map[domain.FontFamily]*truetype.Font{
			domain.FontSans:  bold,
			domain.FontSerif: boldItalic,
			domain.FontMono:  monoBold,
		},
		mono:  mono,
		faces: make(map[faceKey]font.Face),
	}

	if ttfPath != "" {
		data, err := os.ReadFile(ttfPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read font file %s: %w", ttfPath, err)
		}
		custom, err := parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse font file %s: %w", ttfPath, err)
		}
		for fam := range fs.regular {
			fs.regular[fam] = custom
			fs.bold[fam] = custom
		}
	}

	return fs, nil
}

// face returns a cached face for the family/weight at the given pixel size.
func (fs *fontSet) face(family domain.FontFamily, bold, mono bool, size float64) font.Face {
	key := faceKey{family: family, bold: bold, mono: mono, size: size}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if f, ok := fs.faces[key]; ok {
		return f
	}

	var fnt *truetype.Font
	switch {
	case mono:
		fnt = fs.mono
	case bold:
		fnt = fs.bold[family]
	default:
		fnt = fs.regular[family]
	}
	if fnt == nil {
		fnt = fs.regular[domain.FontSans]
	}

	f := truetype.NewFace(fnt, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	fs.faces[key] = f
	return f
}
