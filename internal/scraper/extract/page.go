// Package extract locates game listings and prize tables in loosely structured
// lottery pages. Each kind of data has an ordered list of strategies; the first
// strategy returning a non-empty result wins and the rest are not run.
package extract

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is a parsed document together with the URL it was loaded from.
type Page struct {
	Doc *goquery.Document
	URL *url.URL
}

// NewPage parses html loaded from pageURL.
func NewPage(html, pageURL string) (*Page, error) {
	return NewPageFromReader(strings.NewReader(html), pageURL)
}

// NewPageFromReader parses an HTML stream loaded from pageURL.
func NewPageFromReader(r io.Reader, pageURL string) (*Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page url %q: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	return &Page{Doc: doc, URL: u}, nil
}

// Resolve turns a possibly relative reference into an absolute URL. Empty and
// unparsable references give "".
func (p *Page) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "javascript:") || strings.HasPrefix(ref, "#") {
		return ""
	}

	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if p.URL == nil {
		if u.IsAbs() {
			return u.String()
		}
		return ""
	}
	return p.URL.ResolveReference(u).String()
}

// BodyText returns the whitespace-collapsed text of the document body.
func (p *Page) BodyText() string {
	return cleanText(p.Doc.Find("body").Text())
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func text(sel *goquery.Selection) string {
	return cleanText(sel.Text())
}

// imageURL reads the first usable source attribute of an image, or of the first
// image inside sel when sel is a wrapper element.
func (p *Page) imageURL(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	if goquery.NodeName(sel) != "img" {
		sel = sel.Find("img").First()
	}
	for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
		if v, ok := sel.Attr(attr); ok {
			if abs := p.Resolve(v); abs != "" && !strings.HasPrefix(abs, "data:") {
				return abs
			}
		}
	}
	return ""
}
