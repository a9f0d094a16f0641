// Package urlqueue holds the page URLs a source will visit in one run and
// the URL pattern helpers shared by the extractors.
package urlqueue

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
)

// Page is one listing page of a source.
type Page struct {
	Number int
	URL    string
}

// URLQueue is a FIFO of pages, deduplicated by normalized URL and bounded
// by MaxPages accepted entries. MaxPages <= 0 means unbounded.
type URLQueue struct {
	MaxPages int

	mu     sync.Mutex
	seen   map[string]bool
	queue  []Page
	accept int
}

func NewURLQueue(maxPages int) *URLQueue {
	return &URLQueue{
		MaxPages: maxPages,
		seen:     make(map[string]bool),
	}
}

// Add enqueues page unless its URL was already queued or the page budget is
// spent.
func (q *URLQueue) Add(page Page) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.MaxPages > 0 && q.accept >= q.MaxPages {
		return false
	}
	key := NormalizeURL(page.URL)
	if q.seen[key] {
		return false
	}
	q.seen[key] = true
	q.queue = append(q.queue, page)
	q.accept++
	return true
}

func (q *URLQueue) Next() (Page, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.queue) == 0 {
		return Page{}, false
	}
	p := q.queue[0]
	q.queue = q.queue[1:]
	return p, true
}

func (q *URLQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// NormalizeURL produces the dedupe key of a URL: no fragment, no "www."
// prefix, lower-case host, https by default and sorted query parameters.
func NormalizeURL(urlStr string) string {
	parsed, err := url.Parse(strings.TrimSpace(urlStr))
	if err != nil {
		return urlStr
	}
	parsed.Fragment = ""
	parsed.Host = strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	if parsed.RawQuery != "" {
		parsed.RawQuery = parsed.Query().Encode()
	}
	return parsed.String()
}

// PageURL fills the {page} and {query} placeholders of a URL template.
func PageURL(template string, page int, query string) string {
	return strings.NewReplacer(
		"{page}", fmt.Sprint(page),
		"{query}", url.QueryEscape(query),
	).Replace(template)
}

// CompilePatterns compiles every non-empty pattern.
func CompilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// URLShouldBeFollowed rejects anything matching an exclude pattern, then
// accepts when there are no follow patterns or one of them matches.
func URLShouldBeFollowed(urlStr string, followPatterns, excludePatterns []*regexp.Regexp) bool {
	for _, re := range excludePatterns {
		if re.MatchString(urlStr) {
			return false
		}
	}
	if len(followPatterns) == 0 {
		return true
	}
	for _, re := range followPatterns {
		if re.MatchString(urlStr) {
			return true
		}
	}
	return false
}
