// Package index discovers candidate article links for a source, either from
// its feed or by scraping the anchors of its index page.
package index

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/TobiSchelling/F1Crawler/internal/config"
	"github.com/TobiSchelling/F1Crawler/internal/fetch"
	"github.com/TobiSchelling/F1Crawler/internal/useragent"
)

var (
	// A numeric path segment (dates, ids) or a long digit run inside a slug.
	reNumeric = regexp.MustCompile(`/\d+(/|$)|\d{5,}`)

	staticExt = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".svg": true,
		".webp": true, ".css": true, ".js": true, ".pdf": true, ".xml": true,
		".ico": true, ".mp4": true, ".mp3": true, ".zip": true, ".json": true,
	}
)

// Candidate is a link that may point to an article.
type Candidate struct {
	URL   string
	Title string
}

// Index is the ordered list of candidates discovered for one source.
type Index struct {
	Source   string
	Articles []Candidate
}

// Builder downloads index pages and feeds.
type Builder struct {
	client *http.Client
	agents useragent.Provider
}

// NewBuilder creates a new index builder.
func NewBuilder(agents useragent.Provider, timeout time.Duration) *Builder {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Builder{
		agents: agents,
		client: &http.Client{Timeout: timeout},
	}
}

// Build returns the candidates of src in discovery order.
func (b *Builder) Build(ctx context.Context, src config.Source) (*Index, error) {
	if src.FeedURL != "" {
		return b.fromFeed(ctx, src)
	}
	return b.fromPage(ctx, src)
}

func (b *Builder) fromFeed(ctx context.Context, src config.Source) (*Index, error) {
	body, err := fetch.Get(ctx, b.client, src.FeedURL, b.agents.UserAgent())
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", src.FeedURL, err)
	}

	idx := &Index{Source: src.Label}
	seen := make(map[string]bool)
	for _, item := range feed.Items {
		link := item.Link
		if link == "" {
			link = item.GUID
		}
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true
		idx.Articles = append(idx.Articles, Candidate{
			URL:   link,
			Title: strings.TrimSpace(item.Title),
		})
	}
	return idx, nil
}

func (b *Builder) fromPage(ctx context.Context, src config.Source) (*Index, error) {
	base, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing index url: %w", err)
	}

	body, err := fetch.Get(ctx, b.client, src.URL, b.agents.UserAgent())
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing index page: %w", err)
	}

	return &Index{Source: src.Label, Articles: Links(doc, base)}, nil
}

// Links enumerates the anchors of doc in document order and keeps the ones
// that look like article pages on the same site as base.
func Links(doc *goquery.Document, base *url.URL) []Candidate {
	var out []Candidate
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		u, ok := resolve(base, href)
		if !ok || !looksLikeArticle(u, base) {
			return
		}
		link := u.String()
		if seen[link] {
			return
		}
		seen[link] = true

		title := strings.Join(strings.Fields(a.Text()), " ")
		if title == "" {
			title = strings.TrimSpace(a.AttrOr("title", ""))
		}
		out = append(out, Candidate{URL: link, Title: title})
	})
	return out
}

func resolve(base *url.URL, href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil, false
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "tel:") {
		return nil, false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	u := base.ResolveReference(ref)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	return u, true
}

func looksLikeArticle(u, base *url.URL) bool {
	if !sameHost(u.Hostname(), base.Hostname()) {
		return false
	}
	p := strings.TrimSuffix(u.Path, "/")
	if p == "" || p == strings.TrimSuffix(base.Path, "/") {
		return false
	}
	if staticExt[strings.ToLower(path.Ext(p))] {
		return false
	}
	if reNumeric.MatchString(p) {
		return true
	}
	return strings.Count(path.Base(p), "-") >= 2
}

func sameHost(a, b string) bool {
	a = strings.TrimPrefix(strings.ToLower(a), "www.")
	b = strings.TrimPrefix(strings.ToLower(b), "www.")
	return a == b
}
