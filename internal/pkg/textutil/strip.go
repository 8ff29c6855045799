// Package textutil cleans up text coming back from the search API.
package textutil

import (
	"strings"

	"golang.org/x/net/html"
)

// StripTags removes markup from s and returns the unescaped text, e.g.
// "<b>스타벅스</b> &amp; Co" becomes "스타벅스 & Co".
func StripTags(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a malformed tail; keep what was read either way.
			return strings.TrimSpace(strings.ReplaceAll(b.String(), "\u00a0", " "))
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}
