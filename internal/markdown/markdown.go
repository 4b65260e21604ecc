// Package markdown renders the small markdown subset assistant replies use:
// "### " headings, "* " bullet lists, **bold** / __bold__ spans and blank-line
// spacing. Everything else is a paragraph. It is not a general markdown parser.
package markdown

import (
	"regexp"
	"strings"
)

type BlockKind string

const (
	Heading   BlockKind = "heading"
	List      BlockKind = "list"
	Paragraph BlockKind = "paragraph"
	Spacer    BlockKind = "spacer"
)

// Span is a run of inline text.
type Span struct {
	Text string `json:"text"`
	Bold bool   `json:"bold,omitempty"`
}

// Block is one rendered line-level node. Lists carry one span slice per item.
type Block struct {
	Kind  BlockKind `json:"kind"`
	Spans []Span    `json:"spans,omitempty"`
	Items [][]Span  `json:"items,omitempty"`
}

const (
	headingPrefix = "### "
	bulletPrefix  = "* "
)

// Render converts text to blocks in a single line-oriented pass. Markers count
// only at the start of a line. Consecutive bullet lines merge into one list; any
// other line closes it.
func Render(text string) []Block {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []Block
	var list *Block
	flush := func() {
		if list != nil {
			out = append(out, *list)
			list = nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, bulletPrefix):
			if list == nil {
				list = &Block{Kind: List}
			}
			list.Items = append(list.Items, Inline(strings.TrimPrefix(line, bulletPrefix)))
		case strings.TrimSpace(line) == "":
			flush()
			out = append(out, Block{Kind: Spacer})
		case strings.HasPrefix(line, headingPrefix):
			flush()
			out = append(out, Block{Kind: Heading, Spans: Inline(strings.TrimPrefix(line, headingPrefix))})
		default:
			flush()
			out = append(out, Block{Kind: Paragraph, Spans: Inline(line)})
		}
	}
	flush()
	return out
}

var boldRe = regexp.MustCompile(`\*\*([^*]+)\*\*|__([^_]+)__`)

// Inline splits a line into plain and bold spans.
func Inline(s string) []Span {
	var spans []Span
	last := 0
	for _, m := range boldRe.FindAllStringSubmatchIndex(s, -1) {
		if m[0] > last {
			spans = append(spans, Span{Text: s[last:m[0]]})
		}
		var inner string
		if m[2] >= 0 {
			inner = s[m[2]:m[3]]
		} else {
			inner = s[m[4]:m[5]]
		}
		spans = append(spans, Span{Text: inner, Bold: true})
		last = m[1]
	}
	if last < len(s) {
		spans = append(spans, Span{Text: s[last:]})
	}
	return spans
}

// PlainText reduces markdown to speakable text: markers are removed and each
// heading, paragraph and list item becomes its own line.
func PlainText(text string) string {
	var lines []string
	for _, b := range Render(text) {
		switch b.Kind {
		case Heading, Paragraph:
			if s := strings.TrimSpace(joinSpans(b.Spans)); s != "" {
				lines = append(lines, s)
			}
		case List:
			for _, item := range b.Items {
				if s := strings.TrimSpace(joinSpans(item)); s != "" {
					lines = append(lines, s)
				}
			}
		}
	}
	return strings.Join(lines, "\n")
}

func joinSpans(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}
