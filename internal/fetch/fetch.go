package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	readability "github.com/go-shiori/go-readability"

	"github.com/TobiSchelling/F1Crawler/internal/useragent"
)

// MinTextLength is the shortest body text (in characters) still treated as
// an article. Index pages and paywall stubs usually fall below it.
const MinTextLength = 50

const maxBodyBytes = 5 << 20

var reDatePublishedJSON = regexp.MustCompile(`"datePublished"\s*:\s*"([^"]+)"`)

// publishDateMeta lists the metadata nodes checked, in order, when the
// extraction library finds no publication time.
var publishDateMeta = []struct {
	selector string
	attr     string
}{
	{`meta[property="article:published_time"]`, "content"},
	{`meta[name="article:published_time"]`, "content"},
	{`meta[property="og:published_time"]`, "content"},
	{`meta[itemprop="datePublished"]`, "content"},
	{`meta[name="pubdate"]`, "content"},
	{`meta[name="publishdate"]`, "content"},
	{`meta[name="date"]`, "content"},
	{`time[datetime]`, "datetime"},
}

// RawArticle is a downloaded and parsed article page.
type RawArticle struct {
	URL   string
	HTML  string
	Text  string
	Title string
	// PublishDate is the parser's best guess, nil when none was found.
	PublishDate *time.Time
}

// Fetcher downloads article pages with a rotating identity and extracts
// their readable text.
type Fetcher struct {
	client *http.Client
	agents useragent.Provider
}

// NewFetcher creates a new article fetcher.
func NewFetcher(agents useragent.Provider, timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		agents: agents,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// Fetch downloads and parses articleURL. It returns (nil, nil) when the page
// holds too little text to be an article. Network, status and parse faults
// are returned as errors.
func (f *Fetcher) Fetch(ctx context.Context, articleURL string) (*RawArticle, error) {
	body, err := Get(ctx, f.client, articleURL, f.agents.UserAgent())
	if err != nil {
		return nil, err
	}

	parsedURL, err := url.Parse(articleURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}

	raw := &RawArticle{URL: articleURL, HTML: string(body)}

	doc, docErr := goquery.NewDocumentFromReader(bytes.NewReader(body))

	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err == nil {
		raw.Text = strings.TrimSpace(article.TextContent)
		raw.Title = strings.TrimSpace(article.Title)
		raw.PublishDate = article.PublishedTime
	} else {
		// Fall back to the plain page text.
		if docErr != nil {
			return nil, fmt.Errorf("parsing article: %w", err)
		}
		raw.Text = strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	}

	if docErr == nil {
		if raw.Title == "" {
			raw.Title = strings.TrimSpace(doc.Find("title").First().Text())
		}
		if raw.PublishDate == nil {
			raw.PublishDate = metadataDate(doc, raw.HTML)
		}
	}

	if utf8.RuneCountInString(raw.Text) <= MinTextLength {
		return nil, nil
	}
	return raw, nil
}

// Get performs a GET with the given User-Agent and returns the body, capped
// at 5 MiB. Status codes >= 400 are errors.
func Get(ctx context.Context, client *http.Client, target, userAgent string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &HTTPError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

// metadataDate looks for a publication date in common metadata locations.
func metadataDate(doc *goquery.Document, html string) *time.Time {
	for _, m := range publishDateMeta {
		value, ok := doc.Find(m.selector).First().Attr(m.attr)
		if !ok {
			continue
		}
		if t, err := dateparse.ParseIn(strings.TrimSpace(value), time.UTC); err == nil {
			return &t
		}
	}
	if match := reDatePublishedJSON.FindStringSubmatch(html); match != nil {
		if t, err := dateparse.ParseIn(match[1], time.UTC); err == nil {
			return &t
		}
	}
	return nil
}

// HTTPError reports a response status of 400 or above.
type HTTPError struct {
	Code int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.Code, http.StatusText(e.Code))
}
