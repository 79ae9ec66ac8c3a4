// Package wiki fetches short province descriptions from the EU4 wiki.
package wiki

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
	"github.com/bjornbryggman/eu4-modding-tools/internal/ratelimit"
)

var (
	citationRe = regexp.MustCompile(`\[(\d+|citation needed|note \d+)\]`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// Client fetches wiki pages.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Limiter    *ratelimit.Limiter
}

// NewClient creates a client that makes at most rps requests per second.
func NewClient(baseURL string, rps float64) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
		Limiter:    ratelimit.New(rps),
	}
}

// PageURL returns the wiki URL for a page title.
func PageURL(base, title string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(strings.ReplaceAll(strings.TrimSpace(title), " ", "_"))
}

// Description fetches the page for title and returns its first paragraph.
// A missing page is a not-found error.
func (c *Client) Description(ctx context.Context, title string) (string, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	page := PageURL(c.BaseURL, title)
	req, err := http.NewRequestWithContext(ctx, "GET", page, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "eu4-modding-tools")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", apperr.WrapExternal("fetching "+page, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", apperr.NotFoundf("no wiki page for %q", title)
	case resp.StatusCode != http.StatusOK:
		return "", apperr.Externalf("%s returned status %d", page, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", apperr.WrapExternal("parsing wiki HTML", err)
	}
	desc := ExtractDescription(doc)
	if desc == "" {
		return "", apperr.NotFoundf("wiki page for %q has no text", title)
	}
	return desc, nil
}

// ExtractDescription returns the first non-empty paragraph of the article
// body with citation markers removed.
func ExtractDescription(doc *goquery.Document) string {
	var out string
	doc.Find(".mw-parser-output > p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		p.Find("sup.reference, .mw-editsection").Remove()
		text := citationRe.ReplaceAllString(p.Text(), "")
		text = strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
		if text == "" {
			return true
		}
		out = text
		return false
	})
	return out
}
