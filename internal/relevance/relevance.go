// Package relevance decides whether a candidate article is on topic.
package relevance

import "strings"

// Filter matches article titles and URLs against a fixed keyword set.
type Filter struct {
	keywords []string
}

// NewFilter creates a filter over the given keywords. Keywords are
// lower-cased; empty entries are ignored. A filter without keywords rejects
// every candidate.
func NewFilter(keywords []string) *Filter {
	f := &Filter{}
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			f.keywords = append(f.keywords, k)
		}
	}
	return f
}

// IsRelevant reports whether any keyword is a substring of the lower-cased
// title or URL.
func (f *Filter) IsRelevant(title, url string) bool {
	titleLower := strings.ToLower(title)
	urlLower := strings.ToLower(url)

	for _, keyword := range f.keywords {
		if strings.Contains(titleLower, keyword) || strings.Contains(urlLower, keyword) {
			return true
		}
	}
	return false
}

// Keywords returns the normalized keyword set.
func (f *Filter) Keywords() []string {
	return append([]string(nil), f.keywords...)
}
