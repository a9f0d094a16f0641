package app

import (
	"fmt"
	"net/url"
	"regexp"

	"tender_spider/internal/config"
	"tender_spider/internal/extract"
	urlqueue "tender_spider/internal/url_queue"
)

// SourceSpider is the per-run view of one configured source: its pages, its
// strategy chain and the URL patterns that pick detail links.
type SourceSpider struct {
	Name   string
	Bucket string

	cfg     config.SourceConfig
	chain   extract.Chain
	queue   *urlqueue.URLQueue
	baseURL string
	detail  *regexp.Regexp
	exclude []*regexp.Regexp
}

func newSourceSpider(src config.NamedSource, maxPages int) (*SourceSpider, error) {
	if src.MaxPages > 0 {
		maxPages = src.MaxPages
	}

	ss := &SourceSpider{
		Name:    src.Name,
		Bucket:  src.Bucket,
		cfg:     src.SourceConfig,
		baseURL: src.BaseURL,
	}
	if ss.Bucket == "" {
		ss.Bucket = src.Name
	}

	if src.DetailPattern != "" {
		re, err := regexp.Compile(src.DetailPattern)
		if err != nil {
			return nil, fmt.Errorf("source %s: detail pattern: %w", src.Name, err)
		}
		ss.detail = re
	}
	exclude, err := urlqueue.CompilePatterns(src.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", src.Name, err)
	}
	ss.exclude = exclude

	switch src.Kind {
	case config.KindList:
		ss.chain = extract.Chain{extract.NextData{}, extract.NextDataRoute{}, extract.HTMLLinks{}}
		ss.queue = templatePages(src, maxPages)
	case config.KindAPI:
		ss.chain = extract.Chain{extract.JSONAPI{}}
		ss.queue = templatePages(src, maxPages)
	case config.KindSitemap:
		ss.chain = extract.Chain{extract.Sitemap{MaxChildSitemaps: src.MaxChildSitemaps, MaxURLs: src.MaxURLs}}
		ss.queue = urlqueue.NewURLQueue(1)
		ss.queue.Add(urlqueue.Page{URL: src.URL})
	case config.KindPage:
		ss.chain = extract.Chain{extract.Feed{}, extract.HTMLLinks{SameSiteOnly: true}}
		ss.queue = urlqueue.NewURLQueue(0)
		urls := src.URLs
		if src.URL != "" {
			urls = append([]string{src.URL}, urls...)
		}
		for i, u := range urls {
			ss.queue.Add(urlqueue.Page{Number: i, URL: u})
		}
	default:
		return nil, fmt.Errorf("source %s: unknown kind %q", src.Name, src.Kind)
	}

	if ss.baseURL == "" {
		ss.baseURL = originOf(firstURL(src))
	}
	return ss, nil
}

// templatePages queues pages 0..maxPages-1 of a {page} URL template.
func templatePages(src config.NamedSource, maxPages int) *urlqueue.URLQueue {
	q := urlqueue.NewURLQueue(maxPages)
	for page := 0; page < maxPages; page++ {
		q.Add(urlqueue.Page{Number: page, URL: urlqueue.PageURL(src.URL, page, src.Query)})
	}
	return q
}

func (ss *SourceSpider) Kind() string { return ss.cfg.Kind }

// Strategies names the chain, e.g. "next_data>next_data_route>html_links".
func (ss *SourceSpider) Strategies() string { return ss.chain.Names() }

func (ss *SourceSpider) nextPage() (urlqueue.Page, bool) {
	return ss.queue.Next()
}

func (ss *SourceSpider) pageContext(page urlqueue.Page, fetcher extract.Fetcher) extract.PageContext {
	return extract.PageContext{
		Source:        ss.Name,
		BaseURL:       ss.baseURL,
		Page:          page.Number,
		DetailPattern: ss.detail,
		Exclude:       ss.exclude,
		Fetcher:       fetcher,
	}
}

func firstURL(src config.NamedSource) string {
	if src.URL != "" {
		return src.URL
	}
	if len(src.URLs) > 0 {
		return src.URLs[0]
	}
	return ""
}

func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
