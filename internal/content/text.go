// Package content turns feed and page HTML into plain text suitable for
// summaries and messages.
package content

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mattn/go-runewidth"
)

const ellipsis = "..."

// PlainText strips markup and collapses whitespace.
// Input without tags is returned with whitespace normalised.
func PlainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	if !strings.ContainsAny(html, "<&") {
		return collapseSpaces(html)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return collapseSpaces(html)
	}
	doc.Find("script, style, noscript").Remove()
	doc.Find("br, p, div, li, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})

	return collapseSpaces(doc.Text())
}

// FirstImage returns the src of the first <img> in html, resolved against base.
// Sources that do not resolve to an absolute http(s) URL yield "".
func FirstImage(html, base string) string {
	if !strings.Contains(html, "<img") {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	src, ok := doc.Find("img[src]").First().Attr("src")
	if !ok {
		return ""
	}
	return ResolveURL(src, base)
}

// Truncate shortens s to at most width display cells and appends "...".
// Strings that already fit are returned unchanged.
func Truncate(s string, width int) string {
	s = strings.TrimSpace(s)
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	cut := runewidth.Truncate(s, width, "")
	return strings.TrimRight(cut, " \t\n") + ellipsis
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ResolveURL resolves ref against base and returns it only when the result
// is an absolute http(s) URL. Anything else yields "".
func ResolveURL(ref, base string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if !refURL.IsAbs() {
		baseURL, err := url.Parse(strings.TrimSpace(base))
		if err != nil || !baseURL.IsAbs() {
			return ""
		}
		refURL = baseURL.ResolveReference(refURL)
	}
	if (refURL.Scheme != "http" && refURL.Scheme != "https") || refURL.Host == "" {
		return ""
	}
	return refURL.String()
}
