package layout

import (
	"image/color"
	"strings"

	"github.com/hualin/rednote-studio/internal/domain"
	"github.com/hualin/rednote-studio/internal/theme"
)

// Input carries everything a layout builder may place on a card.
type Input struct {
	Content domain.ParsedContent
	Palette theme.Palette
	Font    theme.FontSpec
	// ImageURL is empty when the card has no image.
	ImageURL string
	// Task, when non-nil, is an in-flight generation task; the image area
	// renders its progress instead of an image or the text-only fallback.
	Task *domain.TaskState
}

// Render maps a style configuration and card input onto a visual tree. It is
// total: every layout×theme×ratio×font combination yields a renderable tree.
// Degenerate combinations degrade instead of failing — an image-bearing
// layout without an image or task omits the image slot entirely and lets its
// text arrangement take the full frame.
func Render(style domain.StyleConfiguration, in Input) *Tree {
	tree := &Tree{
		Ratio:      style.Ratio,
		Background: in.Palette.Background,
		Palette:    in.Palette,
		Font:       in.Font,
	}

	switch style.Layout {
	case domain.LayoutStandard:
		tree.Regions = standardRegions(in)
	case domain.LayoutLeftImage:
		tree.Regions = sideImageRegions(in, false)
	case domain.LayoutRightImage:
		tree.Regions = sideImageRegions(in, true)
	case domain.LayoutOverlay:
		tree.Regions = overlayRegions(in)
	case domain.LayoutCollage:
		tree.Regions = collageRegions(in)
	case domain.LayoutMagazine:
		tree.Regions = magazineRegions(in)
	case domain.LayoutTextOnly:
		tree.Regions = textOnlyRegions(in)
	default:
		tree.Regions = standardRegions(in)
	}

	return tree
}

// imageAreaBlock decides what occupies an image slot: a progress indicator
// while a task is in flight, the image when one is available, or nothing.
func imageAreaBlock(in Input) Block {
	if in.Task != nil {
		return Progress{
			Percent: in.Task.Percent(),
			Label:   statusLabel(in.Task.Status),
		}
	}
	if in.ImageURL != "" {
		return Image{Source: in.ImageURL}
	}
	return nil
}

func statusLabel(s domain.TaskStatus) string {
	switch s {
	case domain.TaskPending:
		return "等待中"
	case domain.TaskProcessing:
		return "生成中"
	case domain.TaskCompleted:
		return "已完成"
	case domain.TaskFailed:
		return "生成失败"
	default:
		return "正在处理"
	}
}

// textBlocks assembles the standard title/body/tags column. inlineTags caps
// the first pill row; overflow wraps, never drops.
func textBlocks(in Input, inlineTags int) []Block {
	blocks := []Block{Heading{Text: in.Content.Title}}
	blocks = append(blocks, bodyBlocks(in.Content.Body)...)
	if len(in.Content.Tags) > 0 {
		blocks = append(blocks, Tags{Tags: in.Content.Tags, Inline: inlineTags})
	}
	return blocks
}

func standardRegions(in Input) []Region {
	slot := imageAreaBlock(in)
	if slot == nil {
		return []Region{{
			Rect:   RelRect{0, 0, 1, 1},
			PadPx:  32,
			Blocks: textBlocks(in, 0),
		}}
	}
	return []Region{
		{Rect: RelRect{0, 0, 1, 0.45}, Blocks: []Block{slot}},
		{Rect: RelRect{0, 0.45, 1, 0.55}, PadPx: 32, Blocks: textBlocks(in, 0)},
	}
}

func sideImageRegions(in Input, imageRight bool) []Region {
	slot := imageAreaBlock(in)
	if slot == nil {
		return []Region{{
			Rect:   RelRect{0, 0, 1, 1},
			PadPx:  32,
			Blocks: textBlocks(in, 0),
		}}
	}
	imageRect := RelRect{0, 0, 0.45, 1}
	textRect := RelRect{0.45, 0, 0.55, 1}
	if imageRight {
		imageRect.X = 0.55
		textRect.X = 0
	}
	return []Region{
		{Rect: imageRect, Blocks: []Block{slot}},
		{Rect: textRect, PadPx: 28, Blocks: textBlocks(in, 0)},
	}
}

func overlayRegions(in Input) []Region {
	slot := imageAreaBlock(in)
	if slot == nil {
		return textOnlyRegions(in)
	}

	// Bottom scrim so text stays legible over arbitrary imagery.
	scrim := theme.Gradient(
		color.NRGBA{0, 0, 0, 0},
		color.NRGBA{0, 0, 0, 0xc8},
		180,
	)
	return []Region{
		{Rect: RelRect{0, 0, 1, 1}, Blocks: []Block{slot}},
		{Rect: RelRect{0, 0.4, 1, 0.6}, Fill: &scrim},
		{Rect: RelRect{0, 0.52, 1, 0.48}, PadPx: 32, Inverse: true, Blocks: textBlocks(in, 0)},
	}
}

func collageRegions(in Input) []Region {
	quote := theme.Flat(in.Palette.Secondary)
	quoteRegion := Region{
		Rect:   RelRect{0.61, 0.03, 0.36, 0.52},
		Fill:   &quote,
		PadPx:  18,
		Blocks: []Block{Quote{Text: pullQuote(in.Content)}},
	}
	textRegion := Region{
		Rect:   RelRect{0.03, 0.58, 0.94, 0.39},
		PadPx:  16,
		Blocks: textBlocks(in, 3),
	}

	slot := imageAreaBlock(in)
	if slot == nil {
		// No image cell: the pull-quote spans the whole top row.
		quoteRegion.Rect = RelRect{0.03, 0.03, 0.94, 0.52}
		return []Region{quoteRegion, textRegion}
	}
	return []Region{
		{Rect: RelRect{0.03, 0.03, 0.55, 0.52}, Blocks: []Block{slot}},
		quoteRegion,
		textRegion,
	}
}

func magazineRegions(in Input) []Region {
	textRegion := Region{
		Rect:  RelRect{0, 0, 0.62, 1},
		PadPx: 36,
		Blocks: append(
			[]Block{Heading{Text: in.Content.Title, DropCap: true}},
			bodyBlocks(in.Content.Body)...,
		),
	}

	slot := imageAreaBlock(in)
	if slot == nil {
		textRegion.Rect = RelRect{0, 0, 1, 1}
		if len(in.Content.Tags) > 0 {
			textRegion.Blocks = append(textRegion.Blocks, Tags{Tags: in.Content.Tags})
		}
		return []Region{textRegion}
	}

	regions := []Region{
		textRegion,
		{Rect: RelRect{0.65, 0.05, 0.32, 0.6}, Blocks: []Block{slot}},
	}
	if len(in.Content.Tags) > 0 {
		regions = append(regions, Region{
			Rect:   RelRect{0.65, 0.68, 0.32, 0.29},
			Blocks: []Block{Tags{Tags: in.Content.Tags}},
		})
	}
	return regions
}

func textOnlyRegions(in Input) []Region {
	return []Region{{
		Rect:   RelRect{0, 0, 1, 1},
		PadPx:  40,
		Blocks: textBlocks(in, 0),
	}}
}

// pullQuote picks the collage quote text: the first body sentence when one
// exists, otherwise the title.
func pullQuote(c domain.ParsedContent) string {
	for _, line := range strings.Split(c.Body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		const maxQuote = 60
		runes := []rune(line)
		if len(runes) > maxQuote {
			return string(runes[:maxQuote]) + "…"
		}
		return line
	}
	return c.Title
}
