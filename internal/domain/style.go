package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// LayoutVariant selects one of the named spatial arrangements of
// image/title/body/tags on a card.
type LayoutVariant string

const (
	LayoutStandard   LayoutVariant = "standard"
	LayoutLeftImage  LayoutVariant = "left-image"
	LayoutRightImage LayoutVariant = "right-image"
	LayoutOverlay    LayoutVariant = "overlay"
	LayoutCollage    LayoutVariant = "collage"
	LayoutMagazine   LayoutVariant = "magazine"
	LayoutTextOnly   LayoutVariant = "text-only"
)

// LayoutVariants lists every variant, in UI order.
var LayoutVariants = []LayoutVariant{
	LayoutStandard,
	LayoutLeftImage,
	LayoutRightImage,
	LayoutOverlay,
	LayoutCollage,
	LayoutMagazine,
	LayoutTextOnly,
}

// ParseLayoutVariant maps a wire name onto a LayoutVariant. Unknown names
// fall back to the standard layout; style selection always originates from a
// constrained control, so an unknown value is a stale client, not an error.
func ParseLayoutVariant(s string) LayoutVariant {
	for _, v := range LayoutVariants {
		if string(v) == s {
			return v
		}
	}
	return LayoutStandard
}

// ColorTheme names a fixed palette.
type ColorTheme string

const (
	ThemeRedbook  ColorTheme = "redbook"
	ThemeNature   ColorTheme = "nature"
	ThemeOcean    ColorTheme = "ocean"
	ThemeSunset   ColorTheme = "sunset"
	ThemeElegant  ColorTheme = "elegant"
	ThemeDark     ColorTheme = "dark"
	ThemeGradient ColorTheme = "gradient"
)

// ColorThemes lists every theme, in UI order.
var ColorThemes = []ColorTheme{
	ThemeRedbook,
	ThemeNature,
	ThemeOcean,
	ThemeSunset,
	ThemeElegant,
	ThemeDark,
	ThemeGradient,
}

// FontFamily selects the typeface stack used on a card.
type FontFamily string

const (
	FontSans  FontFamily = "sans"
	FontSerif FontFamily = "serif"
	FontMono  FontFamily = "mono"
)

// FontSize selects the type scale used on a card.
type FontSize string

const (
	SizeSmall  FontSize = "small"
	SizeMedium FontSize = "medium"
	SizeLarge  FontSize = "large"
)

// AspectRatio is the fixed width:height relationship of the card frame.
// Named ratios come from the ratio picker; Custom holds an arbitrary
// positive-integer pair.
type AspectRatio struct {
	W int
	H int
}

var (
	RatioSquare   = AspectRatio{1, 1}
	RatioPortrait = AspectRatio{4, 5}
	RatioTall     = AspectRatio{4, 6}
	RatioClassic  = AspectRatio{3, 4}
	RatioScreen   = AspectRatio{9, 16}
	RatioBanner   = AspectRatio{16, 9}
)

// ParseAspectRatio parses a ratio selector: a named "W:H" pair from the fixed
// set, or "custom:W:H" with arbitrary positive integers. Anything
// unparseable resolves to the default 4:5 portrait.
func ParseAspectRatio(s string) AspectRatio {
	if rest, ok := strings.CutPrefix(s, "custom:"); ok {
		parts := strings.Split(rest, ":")
		if len(parts) == 2 {
			w, errW := strconv.Atoi(parts[0])
			h, errH := strconv.Atoi(parts[1])
			if errW == nil && errH == nil && w > 0 && h > 0 {
				return AspectRatio{W: w, H: h}
			}
		}
		return RatioPortrait
	}

	switch s {
	case "1:1":
		return RatioSquare
	case "4:5":
		return RatioPortrait
	case "4:6":
		return RatioTall
	case "3:4":
		return RatioClassic
	case "9:16":
		return RatioScreen
	case "16:9":
		return RatioBanner
	default:
		return RatioPortrait
	}
}

// String renders the ratio in its wire form.
func (r AspectRatio) String() string {
	return fmt.Sprintf("%d:%d", r.W, r.H)
}

// HeightFor returns the frame height for a given width, preserving the ratio.
func (r AspectRatio) HeightFor(width int) int {
	if r.W <= 0 {
		return width
	}
	return width * r.H / r.W
}

// StyleConfiguration is the full set of presentation choices for one
// rendering pass. Every combination of its fields must produce a valid
// render; degenerate combinations degrade visually (an image-bearing layout
// without an image renders its text-only form) instead of being rejected.
type StyleConfiguration struct {
	Layout     LayoutVariant `json:"cardStyle"`
	Theme      ColorTheme    `json:"colorTheme"`
	Ratio      AspectRatio   `json:"-"`
	FontFamily FontFamily    `json:"fontFamily"`
	FontSize   FontSize      `json:"fontSize"`
}

// DefaultStyle mirrors the initial picker state of the UI.
func DefaultStyle() StyleConfiguration {
	return StyleConfiguration{
		Layout:     LayoutStandard,
		Theme:      ThemeRedbook,
		Ratio:      RatioPortrait,
		FontFamily: FontSans,
		FontSize:   SizeMedium,
	}
}
