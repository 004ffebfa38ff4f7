// Package dateextract recovers article publication dates from raw HTML using
// the per-source rules of the registry.
//
// Third-party markup changes without notice, so every failure mode ends in
// "no date" rather than an error. When a configured rule stops matching, a
// breadcrumb with an excerpt of the page body is left in the diagnostics so
// the selector can be fixed.
package dateextract

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/ncruces/go-strftime"

	"github.com/TobiSchelling/F1Crawler/internal/config"
	"github.com/TobiSchelling/F1Crawler/internal/diag"
)

// ExcerptLimit caps the body excerpt attached to a failed lookup.
const ExcerptLimit = 1000

// tagClass matches selectors of the form "tag.class" (last class wins for
// "tag.a.b").
var tagClass = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9-]*)((?:\.[A-Za-z0-9_-]+)+)$`)

// colonOffset matches an ISO-8601 "+01:00" style offset at the end of a value.
var colonOffset = regexp.MustCompile(`([+-]\d{2}):(\d{2})$`)

// Extract returns the publication date found with the source's rule, or nil.
// Timestamps without zone information are read as UTC.
func Extract(html string, src config.Source, events *diag.Log) *time.Time {
	if html == "" || !src.HasDateRule() {
		return nil
	}
	if events == nil {
		events = &diag.Log{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	value, ok := lookup(doc, src.DateSelector, src.DateAttribute)
	if !ok {
		events.Infof("🚨 DEBUG FAILURE (CSS): Date tag/attribute not found for '%s'.", src.Label)
		events.Excerpt(bodyExcerpt(doc, html))
		return nil
	}

	t, err := strftime.Parse(src.DateFormat, normalizeOffset(src.DateFormat, value))
	if err != nil {
		return nil
	}
	return &t
}

// lookup finds the first node for selector and reads attr from it. When the
// selector is a plain "tag.class" and finds nothing, a looser match on a
// class attribute containing the class name is tried.
func lookup(doc *goquery.Document, selector, attr string) (string, bool) {
	node := doc.Find(selector).First()
	if node.Length() == 0 {
		if m := tagClass.FindStringSubmatch(selector); m != nil {
			classes := strings.Split(strings.TrimPrefix(m[2], "."), ".")
			class := classes[len(classes)-1]
			node = doc.Find(m[1] + `[class*="` + class + `"]`).First()
		}
	}
	if node.Length() == 0 {
		return "", false
	}

	value, exists := node.Attr(attr)
	value = strings.TrimSpace(value)
	if !exists || value == "" {
		return "", false
	}
	return value, true
}

// normalizeOffset rewrites a trailing "+01:00" into the "+0100" form %z
// parses, when the format ends in %z.
func normalizeOffset(format, value string) string {
	if !strings.HasSuffix(format, "%z") {
		return value
	}
	return colonOffset.ReplaceAllString(value, "$1$2")
}

func bodyExcerpt(doc *goquery.Document, raw string) string {
	excerpt := raw
	if body := doc.Find("body").First(); body.Length() > 0 {
		if h, err := goquery.OuterHtml(body); err == nil {
			excerpt = h
		}
	}
	return truncate(excerpt, ExcerptLimit)
}

// truncate keeps the first limit characters of s.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
