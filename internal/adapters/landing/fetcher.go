// Package landing fetches a landing page and reduces it to the copy a brand
// analysis needs.
package landing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/okian/adcraft/pkg/logger"
)

const (
	maxBodyBytes   = 2 << 20
	maxHeadings    = 20
	maxCTAs        = 10
	minBlockLength = 40
	userAgent      = "adcraft-landing-fetcher/1.0"
)

// Errors returned by Fetch.
var (
	ErrInvalidURL = errors.New("landing page url must be http or https")
	ErrStatus     = errors.New("landing page returned an error status")
	ErrNoContent  = errors.New("landing page has no readable text")
)

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.log = l
		}
	}
}

// Fetcher downloads landing pages.
type Fetcher struct {
	client *http.Client
	log    logger.Logger
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{client: http.DefaultClient, log: logger.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads rawURL and returns its marketing copy as plain text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s: HTTP %d", ErrStatus, rawURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", rawURL, err)
	}

	text := ExtractCopy(doc)
	if text == "" {
		return "", fmt.Errorf("%w: %s", ErrNoContent, rawURL)
	}
	f.log.Debug(ctx, "landing page fetched", logger.String("url", rawURL), logger.Int("chars", len(text)))
	return text, nil
}

// ExtractCopy pulls title, description, headings, calls to action and body
// text out of doc. Scripts, navigation and footers are dropped.
func ExtractCopy(doc *goquery.Document) string {
	doc.Find("script, style, noscript, svg, nav, footer, iframe, .cookie-notice, #cookie-banner").Remove()

	var b strings.Builder
	if title := clean(doc.Find("title").First().Text()); title != "" {
		fmt.Fprintf(&b, "Title: %s\n", title)
	}
	desc, _ := doc.Find(`meta[name="description"]`).Attr("content")
	if desc == "" {
		desc, _ = doc.Find(`meta[property="og:description"]`).Attr("content")
	}
	if desc = clean(desc); desc != "" {
		fmt.Fprintf(&b, "Description: %s\n", desc)
	}

	headings := collect(doc.Find("h1, h2, h3"), maxHeadings)
	if len(headings) > 0 {
		b.WriteString("Headings:\n")
		for _, h := range headings {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}

	ctas := collect(doc.Find(`button, a.button, a.btn, a[class*="cta"], input[type="submit"]`), maxCTAs)
	if len(ctas) > 0 {
		b.WriteString("Calls to action:\n")
		for _, c := range ctas {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}

	var blocks []string
	seen := map[string]struct{}{}
	doc.Find("p, li, blockquote").Each(func(_ int, s *goquery.Selection) {
		t := clean(s.Text())
		if len(t) < minBlockLength {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		blocks = append(blocks, t)
	})
	if len(blocks) == 0 {
		if body := clean(doc.Find("body").Text()); len(body) >= minBlockLength {
			blocks = append(blocks, body)
		}
	}
	if len(blocks) > 0 {
		b.WriteString("Body:\n")
		b.WriteString(strings.Join(blocks, "\n"))
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func collect(sel *goquery.Selection, limit int) []string {
	var out []string
	seen := map[string]struct{}{}
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := clean(s.Text())
		if t == "" {
			t = clean(s.AttrOr("value", ""))
		}
		if t == "" {
			return true
		}
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			out = append(out, t)
		}
		return len(out) < limit
	})
	return out
}

// clean collapses all whitespace runs to single spaces.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
