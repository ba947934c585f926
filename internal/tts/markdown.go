package tts

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var spaceRegex = regexp.MustCompile(`\s+`)

// SpeakableText converts markdown into plain prose for synthesis. Code
// blocks and raw HTML are dropped, link targets are removed, and block
// elements end with a sentence break so the voice pauses between them.
func SpeakableText(markdown string) string {
	reader := text.NewReader([]byte(markdown))
	doc := goldmark.New().Parser().Parse(reader)

	var buf strings.Builder
	walkSpeakable(doc, reader.Source(), &buf)

	return strings.TrimSpace(spaceRegex.ReplaceAllString(buf.String(), " "))
}

func walkSpeakable(node ast.Node, source []byte, buf *strings.Builder) {
	switch n := node.(type) {
	case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock, *ast.RawHTML:
		return

	case *ast.Text:
		buf.Write(n.Segment.Value(source))
		if n.SoftLineBreak() || n.HardLineBreak() {
			buf.WriteString(" ")
		}
		return

	case *ast.String:
		buf.Write(n.Value)
		return

	case *ast.CodeSpan:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
			}
		}
		return

	case *ast.Image:
		// Alt text only.
		walkChildren(n, source, buf)
		return

	case *ast.Heading, *ast.Paragraph, *ast.ListItem:
		walkChildren(n, source, buf)
		endSentence(buf)
		return

	case *ast.ThematicBreak:
		endSentence(buf)
		return
	}

	walkChildren(node, source, buf)
}

func walkChildren(node ast.Node, source []byte, buf *strings.Builder) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		walkSpeakable(c, source, buf)
	}
}

// endSentence terminates the text written so far unless it already ends
// in punctuation.
func endSentence(buf *strings.Builder) {
	s := strings.TrimRight(buf.String(), " ")
	if s == "" {
		return
	}
	switch s[len(s)-1] {
	case '.', '!', '?', ':', ';':
		buf.WriteString(" ")
	default:
		buf.WriteString(". ")
	}
}
