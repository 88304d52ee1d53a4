package layout

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var bodyMarkdown = goldmark.New()

// bodyBlocks converts a caption body into flowed blocks. The body supports a
// minimal markdown subset (paragraphs, links, lists, inline and fenced code);
// plain text without markup comes through as ordinary paragraphs with its
// line breaks intact.
func bodyBlocks(body string) []Block {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return nil
	}

	src := []byte(body)
	doc := bodyMarkdown.Parser().Parse(text.NewReader(src))

	var blocks []Block
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if b := blockFromNode(n, src); b != nil {
			blocks = append(blocks, b...)
		}
	}
	return blocks
}

func blockFromNode(n ast.Node, src []byte) []Block {
	switch node := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		spans := inlineSpans(n, src, Span{})
		if len(spans) == 0 {
			return nil
		}
		return []Block{Paragraph{Spans: spans}}

	case *ast.Heading:
		spans := inlineSpans(n, src, Span{Bold: true})
		if len(spans) == 0 {
			return nil
		}
		return []Block{Paragraph{Spans: spans}}

	case *ast.List:
		var items [][]Span
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			var spans []Span
			for c := item.FirstChild(); c != nil; c = c.NextSibling() {
				spans = append(spans, inlineSpans(c, src, Span{})...)
			}
			if len(spans) > 0 {
				items = append(items, spans)
			}
		}
		if len(items) == 0 {
			return nil
		}
		return []Block{List{Ordered: node.IsOrdered(), Items: items}}

	case *ast.FencedCodeBlock:
		return []Block{CodeBlock{Text: linesText(node, src)}}

	case *ast.CodeBlock:
		return []Block{CodeBlock{Text: linesText(node, src)}}

	case *ast.Blockquote:
		var blocks []Block
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			blocks = append(blocks, blockFromNode(c, src)...)
		}
		return blocks

	default:
		return nil
	}
}

// inlineSpans flattens the inline children of a block node into spans,
// inheriting bold/code/link state from nested markup.
func inlineSpans(n ast.Node, src []byte, inherit Span) []Span {
	var spans []Span
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			s := inherit
			s.Text = string(node.Segment.Value(src))
			if s.Text != "" {
				spans = append(spans, s)
			}
			// Preserve explicit line breaks so intentional formatting
			// survives into the wrap pass.
			if node.SoftLineBreak() || node.HardLineBreak() {
				br := inherit
				br.Text = "\n"
				spans = append(spans, br)
			}

		case *ast.Emphasis:
			child := inherit
			if node.Level >= 2 {
				child.Bold = true
			}
			spans = append(spans, inlineSpans(c, src, child)...)

		case *ast.CodeSpan:
			s := inherit
			s.Code = true
			s.Text = nodeText(c, src)
			if s.Text != "" {
				spans = append(spans, s)
			}

		case *ast.Link:
			child := inherit
			child.Link = string(node.Destination)
			spans = append(spans, inlineSpans(c, src, child)...)

		case *ast.AutoLink:
			s := inherit
			s.Link = string(node.URL(src))
			s.Text = string(node.Label(src))
			if s.Text != "" {
				spans = append(spans, s)
			}

		default:
			spans = append(spans, inlineSpans(c, src, inherit)...)
		}
	}
	return spans
}

func nodeText(n ast.Node, src []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(src))
		}
	}
	return sb.String()
}

func linesText(n ast.Node, src []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return strings.TrimRight(sb.String(), "\n")
}
