package snapshot

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// blockElements start and end on their own line when rendered
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"div": true, "dl": true, "dt": true, "dd": true, "figure": true,
	"footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "li": true,
	"main": true, "nav": true, "ol": true, "section": true,
	"table": true, "tr": true, "ul": true,
}

// skippedElements never contribute rendered text
var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
}

// innerText approximates HTMLElement.innerText for a static tree. Whitespace
// runs in text collapse to one space, blocks sit on their own lines,
// paragraphs are separated by an empty line and every <br> is a line break,
// so consecutive breaks keep their empty lines. Preformatted text is kept
// verbatim.
func innerText(n *html.Node) string {
	var w textWriter
	w.walk(n, false)
	return strings.Trim(w.b.String(), "\n")
}

type textWriter struct {
	b strings.Builder
	// breaks is the number of line breaks owed before the next content
	breaks    int
	space     bool
	started   bool
	lineStart bool
}

func (w *textWriter) walk(n *html.Node, pre bool) {
	switch n.Type {
	case html.TextNode:
		if pre {
			w.raw(n.Data)
		} else {
			w.text(n.Data)
		}
		return
	case html.ElementNode:
		if skippedElements[n.Data] {
			return
		}
		if n.Data == "br" {
			w.lineBreak()
			return
		}
		pre = pre || preformatted(n)
	}

	breaks := 0
	if n.Type == html.ElementNode {
		switch {
		case n.Data == "p":
			breaks = 2
		case blockElements[n.Data]:
			breaks = 1
		}
	}

	w.require(breaks)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c, pre)
	}
	w.require(breaks)
}

func (w *textWriter) require(n int) {
	if n > w.breaks {
		w.breaks = n
	}
}

// flush emits owed line breaks once there is content before them
func (w *textWriter) flush() {
	if w.breaks == 0 {
		return
	}
	if w.started {
		w.b.WriteString(strings.Repeat("\n", w.breaks))
		w.lineStart = true
	}
	w.breaks = 0
	w.space = false
}

func (w *textWriter) text(s string) {
	if s == "" {
		return
	}
	fields := strings.Fields(s)
	if len(fields) == 0 || startsWithSpace(s) {
		w.space = true
	}
	for i, f := range fields {
		if i > 0 {
			w.space = true
		}
		w.word(f)
	}
	if len(fields) > 0 && endsWithSpace(s) {
		w.space = true
	}
}

func (w *textWriter) word(s string) {
	w.flush()
	if w.space && w.started && !w.lineStart {
		w.b.WriteByte(' ')
	}
	w.b.WriteString(s)
	w.space = false
	w.started = true
	w.lineStart = false
}

func (w *textWriter) raw(s string) {
	if s == "" {
		return
	}
	w.flush()
	if w.space && w.started && !w.lineStart {
		w.b.WriteByte(' ')
	}
	w.b.WriteString(s)
	w.space = false
	w.started = true
	w.lineStart = strings.HasSuffix(s, "\n")
}

func (w *textWriter) lineBreak() {
	w.flush()
	w.b.WriteByte('\n')
	w.space = false
	w.started = true
	w.lineStart = true
}

// preformatted reports whether the element keeps its whitespace as written
func preformatted(n *html.Node) bool {
	switch n.Data {
	case "pre", "textarea", "listing":
		return true
	}
	for _, a := range n.Attr {
		if a.Key != "style" {
			continue
		}
		style := strings.ReplaceAll(strings.ToLower(a.Val), " ", "")
		return strings.Contains(style, "white-space:pre")
	}
	return false
}

func startsWithSpace(s string) bool {
	for _, r := range s {
		return unicode.IsSpace(r)
	}
	return false
}

func endsWithSpace(s string) bool {
	return strings.TrimRightFunc(s, unicode.IsSpace) != s
}
