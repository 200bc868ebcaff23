package pipeline

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Elements that never carry article text. pre and code are dropped so that
// retrieved chunks stay prose.
const boilerplate = "pre, code, script, style, noscript, template, svg, iframe, form, nav, header, footer, aside, button"

const blocks = "p, h1, h2, h3, h4, h5, h6, li, blockquote, td, dd, figcaption"

// ExtractMainText parses an HTML document and returns its readable body as
// paragraphs separated by blank lines. It returns "" when nothing readable
// remains.
func ExtractMainText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}

	doc.Find(boilerplate).Remove()

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main, [role=main]").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body")
	}
	if root.Length() == 0 {
		root = doc.Selection
	}

	var paragraphs []string
	root.Find(blocks).Each(func(_ int, s *goquery.Selection) {
		// containers are represented by their inner blocks
		if s.Find(blocks).Length() > 0 {
			return
		}
		if text := normalizeSpace(s.Text()); text != "" {
			if n := len(paragraphs); n == 0 || paragraphs[n-1] != text {
				paragraphs = append(paragraphs, text)
			}
		}
	})

	if len(paragraphs) == 0 {
		return normalizeSpace(root.Text()), nil
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
