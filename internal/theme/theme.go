// Package theme maps symbolic style choices onto concrete palettes and font
// metrics. Both resolvers are total: style selection originates from fixed
// pickers, so unknown names resolve to the documented defaults (redbook,
// sans, medium) instead of erroring.
package theme

import (
	"image/color"

	"github.com/hualin/rednote-studio/internal/domain"
)

// FillKind discriminates flat and gradient fills.
type FillKind int

const (
	FillFlat FillKind = iota
	FillGradient
)

// Fill describes a card background: a flat color or a two-stop linear
// gradient. Layouts and the rasterizer must handle either.
type Fill struct {
	Kind     FillKind
	Color    color.NRGBA
	From     color.NRGBA
	To       color.NRGBA
	AngleDeg float64
}

// Flat builds a flat fill.
func Flat(c color.NRGBA) Fill {
	return Fill{Kind: FillFlat, Color: c}
}

// Gradient builds a two-stop linear gradient fill.
func Gradient(from, to color.NRGBA, angleDeg float64) Fill {
	return Fill{Kind: FillGradient, From: from, To: to, AngleDeg: angleDeg}
}

// Palette is the resolved color set for one theme.
type Palette struct {
	Primary    color.NRGBA
	Secondary  color.NRGBA
	Text       color.NRGBA
	Accent     color.NRGBA
	Background Fill
}

var palettes = map[domain.ColorTheme]Palette{
	domain.ThemeRedbook: {
		Primary:    color.NRGBA{0xff, 0x2e, 0x51, 0xff},
		Secondary:  color.NRGBA{0xff, 0xe3, 0xe9, 0xff},
		Text:       color.NRGBA{0x33, 0x33, 0x33, 0xff},
		Accent:     color.NRGBA{0xff, 0x8f, 0xa3, 0xff},
		Background: Flat(color.NRGBA{0xff, 0xff, 0xff, 0xff}),
	},
	domain.ThemeNature: {
		Primary:    color.NRGBA{0x4c, 0xaf, 0x50, 0xff},
		Secondary:  color.NRGBA{0xe8, 0xf5, 0xe9, 0xff},
		Text:       color.NRGBA{0x2e, 0x3b, 0x2f, 0xff},
		Accent:     color.NRGBA{0x8b, 0xc3, 0x4a, 0xff},
		Background: Flat(color.NRGBA{0xfa, 0xfd, 0xfa, 0xff}),
	},
	domain.ThemeOcean: {
		Primary:    color.NRGBA{0x21, 0x96, 0xf3, 0xff},
		Secondary:  color.NRGBA{0xe3, 0xf2, 0xfd, 0xff},
		Text:       color.NRGBA{0x1c, 0x2b, 0x36, 0xff},
		Accent:     color.NRGBA{0x4f, 0xc3, 0xf7, 0xff},
		Background: Flat(color.NRGBA{0xf8, 0xfc, 0xff, 0xff}),
	},
	domain.ThemeSunset: {
		Primary:    color.NRGBA{0xff, 0x98, 0x00, 0xff},
		Secondary:  color.NRGBA{0xff, 0xf3, 0xe0, 0xff},
		Text:       color.NRGBA{0x3e, 0x2c, 0x1a, 0xff},
		Accent:     color.NRGBA{0xff, 0xb7, 0x4d, 0xff},
		Background: Flat(color.NRGBA{0xff, 0xfb, 0xf5, 0xff}),
	},
	domain.ThemeElegant: {
		Primary:    color.NRGBA{0x9e, 0x9e, 0x9e, 0xff},
		Secondary:  color.NRGBA{0xf5, 0xf5, 0xf5, 0xff},
		Text:       color.NRGBA{0x42, 0x42, 0x42, 0xff},
		Accent:     color.NRGBA{0xbd, 0xbd, 0xbd, 0xff},
		Background: Flat(color.NRGBA{0xfc, 0xfc, 0xfc, 0xff}),
	},
	domain.ThemeDark: {
		Primary:    color.NRGBA{0x26, 0x32, 0x38, 0xff},
		Secondary:  color.NRGBA{0x37, 0x47, 0x4f, 0xff},
		Text:       color.NRGBA{0xec, 0xef, 0xf1, 0xff},
		Accent:     color.NRGBA{0x80, 0xcb, 0xc4, 0xff},
		Background: Flat(color.NRGBA{0x1c, 0x24, 0x28, 0xff}),
	},
	domain.ThemeGradient: {
		Primary:   color.NRGBA{0xff, 0x75, 0x8c, 0xff},
		Secondary: color.NRGBA{0xff, 0xf0, 0xf4, 0xff},
		Text:      color.NRGBA{0x4a, 0x2d, 0x35, 0xff},
		Accent:    color.NRGBA{0xff, 0x7e, 0xb3, 0xff},
		Background: Gradient(
			color.NRGBA{0xff, 0x75, 0x8c, 0xff},
			color.NRGBA{0xff, 0x7e, 0xb3, 0xff},
			135,
		),
	},
}

// ResolveColors returns the palette for a theme, falling back to the redbook
// palette for unrecognized names.
func ResolveColors(name domain.ColorTheme) Palette {
	if p, ok := palettes[name]; ok {
		return p
	}
	return palettes[domain.ThemeRedbook]
}
