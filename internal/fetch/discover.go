package fetch

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Discover loads an HTML index page and returns the first link whose href ends
// with suffix, resolved against the page URL.
func (f *Fetcher) Discover(ctx context.Context, indexURL, suffix string) (string, error) {
	page, err := f.Fetch(ctx, indexURL)
	if err != nil {
		return "", err
	}
	base, err := url.Parse(indexURL)
	if err != nil {
		return "", fmt.Errorf("parse index url %s: %w", indexURL, err)
	}
	root, err := html.Parse(bytes.NewReader(page.Data))
	if err != nil {
		return "", fmt.Errorf("parse index page %s: %w", indexURL, err)
	}
	links := ParseLinks(root, suffix)
	if len(links) == 0 {
		return "", fmt.Errorf("no %q link on %s", suffix, indexURL)
	}
	abs, err := base.Parse(links[0])
	if err != nil {
		return "", fmt.Errorf("resolve link %s: %w", links[0], err)
	}
	return abs.String(), nil
}

// ParseLinks finds hrefs ending with suffix (case-insensitive) in document order.
func ParseLinks(n *html.Node, suffix string) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(nd *html.Node) {
		if nd.Type == html.ElementNode && nd.Data == "a" {
			for _, a := range nd.Attr {
				if a.Key == "href" {
					if strings.HasSuffix(strings.ToLower(a.Val), strings.ToLower(suffix)) && a.Val != "/" {
						out = append(out, a.Val)
					}
					break
				}
			}
		}
		for c := nd.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}
