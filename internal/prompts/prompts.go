package prompts

import (
	"fmt"
	"strings"
)

// ============================================================================
// 共享词库 (Shared Lexicons)
// ============================================================================

// ToneWords is the tone lexicon offered to callers for caption steering.
var ToneWords = []string{
	"治愈", "元气", "真诚", "幽默", "文艺", "犀利", "种草", "测评", "干货", "碎碎念",
}

// CaptionSeparator splits the multi-caption completion into individual
// captions. The model is instructed to emit it verbatim between captions.
const CaptionSeparator = "***"

// ============================================================================
// Caption Generation Prompts (LLM)
// ============================================================================

// CaptionSystemPrompt defines the role and output contract for caption
// generation: several complete captions in one completion, separated by the
// literal *** marker, each with a title line, body and hashtags.
const CaptionSystemPrompt = `你是小红书爆款文案专家，擅长撰写吸引人的种草笔记和生活分享文案。

【输出要求】
- 每篇文案第一行是标题，吸引眼球，可以带 emoji
- 正文 200-500 字，口语化表达，分段清晰，多用短句
- 每篇文案至少包含 3 个话题标签，格式为 #标签，放在正文末尾
- 多篇文案之间用单独一行 *** 分隔，除此之外不要输出任何编号、序言或解释
- 不要使用 markdown 代码块包裹输出`

// CaptionUserPrompt builds the user message asking for count captions about
// topic. Extra style hints are appended when present.
func CaptionUserPrompt(topic string, count int, style string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "请围绕主题「%s」撰写 %d 篇小红书文案。\n", topic, count)
	if style != "" {
		fmt.Fprintf(&b, "文案风格要求：%s。\n", style)
	}
	fmt.Fprintf(&b, "记住：每篇第一行是标题，末尾带话题标签，多篇之间用单独一行 %s 分隔。", CaptionSeparator)
	return b.String()
}

// ============================================================================
// Image Generation Prompts
// ============================================================================

// imageStyles maps the named AI image styles to their prompt descriptors.
var imageStyles = map[string]string{
	"photo":        "professional photography, natural lighting, high detail, 4k",
	"illustration": "flat illustration, soft pastel colors, clean composition",
	"watercolor":   "watercolor painting, soft edges, gentle color wash",
	"anime":        "anime style, vibrant colors, detailed background",
	"minimal":      "minimalist aesthetic, negative space, muted tones",
}

const defaultImageStyle = "photo"

// ImageStyleNames lists the supported AI image styles.
func ImageStyleNames() []string {
	return []string{"photo", "illustration", "watercolor", "anime", "minimal"}
}

// ImagePrompt builds the generation prompt for a caption title. The caption
// body is deliberately left out: titles are short and focused while bodies
// drag the image model toward text rendering artifacts.
func ImagePrompt(title, style string) string {
	descriptor, ok := imageStyles[style]
	if !ok {
		descriptor = imageStyles[defaultImageStyle]
	}
	return fmt.Sprintf("%s, %s, no text, no watermark", strings.TrimSpace(title), descriptor)
}
