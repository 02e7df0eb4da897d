package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// blockElements end the current paragraph. Everything else is inline and
// continues it.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "hr": true, "blockquote": true,
	"center": true, "pre": true, "table": true, "tr": true, "li": true,
	"ul": true, "ol": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true,
}

// ChapterText extracts the plain text of a chapter page: the paragraphs of
// the story-text region joined by newlines. Inline markup stays inside its
// paragraph and runs of whitespace collapse to one space. A page without
// that region yields empty text and no error.
func (e *Extractor) ChapterText(raw []byte) ([]byte, error) {
	doc, err := parseDocument(raw)
	if err != nil {
		return nil, err
	}

	region := doc.Find(e.layout.StoryText).First()
	if region.Length() == 0 {
		return []byte{}, nil
	}

	var p paragraphs
	p.collect(region)
	p.flush()

	return []byte(strings.Join(p.lines, "\n")), nil
}

// paragraphs accumulates text, breaking lines at block boundaries.
type paragraphs struct {
	lines   []string
	current strings.Builder
}

func (p *paragraphs) collect(sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, node *goquery.Selection) {
		name := goquery.NodeName(node)
		switch {
		case name == "#text":
			p.current.WriteString(node.Text())
		case name == "script", name == "style", name == "#comment":
		case blockElements[name]:
			p.flush()
			p.collect(node)
			p.flush()
		default:
			p.collect(node)
		}
	})
}

// flush ends the current paragraph. Whitespace-only paragraphs are dropped.
func (p *paragraphs) flush() {
	line := strings.Join(strings.Fields(p.current.String()), " ")
	p.current.Reset()
	if line != "" {
		p.lines = append(p.lines, line)
	}
}
