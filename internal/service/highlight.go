package service

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const excerptMaxRunes = 600

// HighlightExcerpt turns a chunk-highlighter page into plain text. The
// highlighted passages (<mark>) are preferred; without any the whole body
// text is used.
func HighlightExcerpt(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse highlight html: %w", err)
	}
	doc.Find("script, style").Remove()

	var parts []string
	doc.Find("mark, .highlight").Each(func(_ int, sel *goquery.Selection) {
		if t := collapseSpace(sel.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	text := strings.Join(parts, "\n…\n")
	if text == "" {
		text = collapseSpace(doc.Find("body").Text())
	}

	r := []rune(text)
	if len(r) > excerptMaxRunes {
		text = string(r[:excerptMaxRunes]) + "…"
	}
	return text, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
