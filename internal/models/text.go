package models

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// PlainText flattens rich-text content to its visible text.
func PlainText(content string) string {
	if !strings.ContainsAny(content, "<&") {
		return content
	}
	z := html.NewTokenizer(strings.NewReader(content))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "br", "p", "div", "li":
				b.WriteByte(' ')
			}
		}
	}
}

// Excerpt returns the plain text of content cut to n runes.
func Excerpt(content string, n int) string {
	s := PlainText(content)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}

// IsBlank reports whether content has no visible text.
func IsBlank(content string) bool {
	return strings.TrimSpace(PlainText(content)) == ""
}
