package oracle

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// BodyText returns the visible text of the body with whitespace collapsed.
// Script, style and noscript content is dropped. Unparsable markup yields "".
func BodyText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	doc.Find("script, style, noscript, template").Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		return collapseSpace(doc.Text())
	}
	return collapseSpace(body.Text())
}

// BodyExcerpt returns at most n characters of the visible body text
func BodyExcerpt(html string, n int) string {
	return Truncate(BodyText(html), n)
}

// TitleOf returns the document title, or "" when there is none
func TitleOf(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// Truncate cuts s to at most n runes
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
