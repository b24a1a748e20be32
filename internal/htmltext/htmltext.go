// Package htmltext renders an HTML email body as a plain-text alternative.
package htmltext

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// ErrEmpty is returned when the document has no visible text.
var ErrEmpty = errors.New("htmltext: no text content")

// Convert extracts readable text from an HTML fragment or document. Block
// elements become line breaks, links keep their target in parentheses, and
// list items are prefixed with "- ".
func Convert(src string) (string, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	w := &writer{}
	w.walk(doc)

	out := w.String()
	if out == "" {
		return "", ErrEmpty
	}
	return out, nil
}

type writer struct {
	b       strings.Builder
	pending int // newlines owed before the next text run
}

func (w *writer) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "head", "title":
			return
		case "br":
			w.newline(1)
			return
		case "hr":
			w.newline(1)
			w.text("----")
			w.newline(1)
			return
		case "li":
			w.newline(1)
			w.text("- ")
		}
		if isBlock(n.Data) {
			w.newline(2)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}

	if n.Type == html.ElementNode {
		if n.Data == "a" {
			if href := attr(n, "href"); href != "" && !strings.HasPrefix(href, "#") && href != textOf(n) {
				w.text(" (" + href + ")")
			}
		}
		if isBlock(n.Data) {
			w.newline(2)
		}
	}
}

func (w *writer) text(s string) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return
	}
	if w.b.Len() > 0 {
		if w.pending > 0 {
			w.b.WriteString(strings.Repeat("\n", w.pending))
		} else if !strings.HasSuffix(w.b.String(), " ") && !strings.HasPrefix(s, " ") && needsSpace(w.b.String(), s) {
			w.b.WriteByte(' ')
		}
	}
	w.pending = 0
	w.b.WriteString(s)
}

func (w *writer) newline(n int) {
	if w.b.Len() == 0 {
		return
	}
	if n > w.pending {
		w.pending = n
	}
}

func (w *writer) String() string {
	return strings.TrimSpace(w.b.String())
}

// needsSpace reports whether adjacent inline runs should be separated.
// Punctuation that directly follows a run is glued on.
func needsSpace(prev, next string) bool {
	switch next[0] {
	case '.', ',', ';', ':', '!', '?', ')':
		return false
	}
	return !strings.HasSuffix(prev, "(")
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6", "table", "tr", "ul", "ol", "blockquote", "pre", "section", "article", "header", "footer":
		return true
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.TrimSpace(b.String())
}
