package store

import (
	"strings"

	"golang.org/x/net/html"
)

// NormalizeContent reduces a raw fragment to plain visible text: markup is
// stripped when present and whitespace runs are collapsed. The content hash
// of an evidence item is computed over this normalized form, so the same
// material arriving with different markup or spacing deduplicates to one
// item.
func NormalizeContent(raw string) string {
	text := raw
	if strings.Contains(raw, "<") && strings.Contains(raw, ">") {
		if stripped, ok := stripMarkup(raw); ok {
			text = stripped
		}
	}
	return collapseWhitespace(text)
}

// stripMarkup extracts visible text nodes, skipping script/style content.
func stripMarkup(raw string) (string, bool) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return "", false
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return buf.String(), true
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// fragment is one discrete piece of a raw source: its text plus the
// 0-based line offset and line count within the source content.
type fragment struct {
	text       string
	lineOffset int
	lineCount  int
}

// splitFragments breaks raw source content into discrete fragments on blank
// lines, tracking line offsets so per-fragment provenance ranges can be
// derived from the source's own line range.
func splitFragments(content string) []fragment {
	lines := strings.Split(content, "\n")

	var frags []fragment
	var current []string
	start := 0

	flush := func(end int) {
		text := strings.TrimSpace(strings.Join(current, "\n"))
		if text != "" {
			frags = append(frags, fragment{
				text:       text,
				lineOffset: start,
				lineCount:  end - start,
			})
		}
		current = nil
	}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush(i)
			start = i + 1
			continue
		}
		if current == nil {
			start = i
		}
		current = append(current, line)
	}
	flush(len(lines))

	return frags
}
