package theme

import "github.com/hualin/rednote-studio/internal/domain"

// FontSpec holds the resolved font metrics for one card. Sizes are logical
// pixels at the 800px base card width; the rasterizer scales them by the
// device scale factor.
type FontSpec struct {
	Family      domain.FontFamily
	FamilyStack string
	TitlePx     float64
	BodyPx      float64
	TagPx       float64
}

var familyStacks = map[domain.FontFamily]string{
	domain.FontSans:  `"PingFang SC", "Helvetica Neue", "Microsoft YaHei", sans-serif`,
	domain.FontSerif: `"Songti SC", Georgia, "Times New Roman", serif`,
	domain.FontMono:  `"SF Mono", "JetBrains Mono", Consolas, monospace`,
}

type sizeScale struct {
	title, body, tag float64
}

var sizeScales = map[domain.FontSize]sizeScale{
	domain.SizeSmall:  {title: 24, body: 14, tag: 12},
	domain.SizeMedium: {title: 28, body: 16, tag: 13},
	domain.SizeLarge:  {title: 34, body: 19, tag: 15},
}

// ResolveFont returns the font metrics for a family/size pair. Unrecognized
// values fall back to the sans family at medium size.
func ResolveFont(family domain.FontFamily, size domain.FontSize) FontSpec {
	stack, ok := familyStacks[family]
	if !ok {
		family = domain.FontSans
		stack = familyStacks[domain.FontSans]
	}
	scale, ok := sizeScales[size]
	if !ok {
		scale = sizeScales[domain.SizeMedium]
	}
	return FontSpec{
		Family:      family,
		FamilyStack: stack,
		TitlePx:     scale.title,
		BodyPx:      scale.body,
		TagPx:       scale.tag,
	}
}
