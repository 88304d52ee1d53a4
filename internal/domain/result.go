package domain

// GenerationResult is one caption+image pairing produced by a generation run.
// Content is the raw multi-line caption text (title on the first line, tags
// embedded as #token substrings). ImageURL is the resolved image location and
// may be empty for text-only cards, a remote URL, or a memory:// handle for
// decoded AI-generation payloads. ImageURL is replaced in place when an
// asynchronous image task completes or the user picks a replacement.
type GenerationResult struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl"`
}

// ParsedContent is the per-render decomposition of a raw caption. It is
// derived, never persisted: edits to Content invalidate it, so callers
// recompute it on every render pass.
type ParsedContent struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}
