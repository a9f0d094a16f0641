package extract

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"

	"tender_spider/internal/models"
)

const (
	DefaultMaxChildSitemaps = 5
	DefaultMaxSitemapURLs   = 200
	maxSitemapDepth         = 2
)

type sitemapEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

// sitemapDocument covers both <urlset> and <sitemapindex>; XMLName tells
// them apart.
type sitemapDocument struct {
	XMLName  xml.Name
	URLs     []sitemapEntry `xml:"url"`
	Sitemaps []sitemapEntry `xml:"sitemap"`
}

// ParseSitemap decodes a sitemap body. Non-UTF-8 encodings declared in the
// XML prolog are converted. It returns the page URLs of a urlset or the child
// sitemap URLs of an index.
func ParseSitemap(body []byte) (urls []string, children []string, err error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charset.NewReaderLabel

	var doc sitemapDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("parse sitemap: %w", err)
	}
	switch doc.XMLName.Local {
	case "urlset":
		return locs(doc.URLs), nil, nil
	case "sitemapindex":
		return nil, locs(doc.Sitemaps), nil
	default:
		return nil, nil, fmt.Errorf("parse sitemap: unexpected root <%s>", doc.XMLName.Local)
	}
}

func locs(entries []sitemapEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if loc := strings.TrimSpace(e.Loc); loc != "" {
			out = append(out, loc)
		}
	}
	return out
}

// Sitemap turns a urlset or sitemap index into a flat batch of detail URLs.
// Child sitemaps are fetched through the page fetcher, at most
// MaxChildSitemaps per index and two levels deep; the flattened list is cut
// at MaxURLs before the detail pattern is applied.
type Sitemap struct {
	MaxChildSitemaps int
	MaxURLs          int
}

func (Sitemap) Name() string { return "sitemap" }

func (s Sitemap) Extract(ctx context.Context, doc *models.SourceDocument, page PageContext) Result {
	if doc == nil || len(doc.Body) == 0 {
		return Result{Status: status(s.Name(), OutcomeAbsent, 0, "empty document")}
	}
	maxURLs := s.MaxURLs
	if maxURLs <= 0 {
		maxURLs = DefaultMaxSitemapURLs
	}

	var (
		flat   []string
		errs   []string
		parsed bool
	)
	var collect func(body []byte, depth int)
	collect = func(body []byte, depth int) {
		urls, children, err := ParseSitemap(body)
		if err != nil {
			errs = append(errs, err.Error())
			return
		}
		parsed = true
		for _, u := range urls {
			if len(flat) >= maxURLs {
				return
			}
			flat = append(flat, u)
		}
		if depth >= maxSitemapDepth || page.Fetcher == nil {
			return
		}
		for _, child := range limit(children, s.maxChildren()) {
			if len(flat) >= maxURLs || ctx.Err() != nil {
				return
			}
			childDoc, err := page.Fetcher.Get(ctx, child)
			if err != nil {
				errs = append(errs, fmt.Sprintf("fetch %s: %v", child, err))
				continue
			}
			collect(childDoc.Body, depth+1)
		}
	}
	collect(doc.Body, 1)

	if !parsed {
		return Result{Status: status(s.Name(), OutcomeFailed, 0, strings.Join(errs, "; "))}
	}

	seen := dedup{}
	var out []models.Candidate
	for _, u := range flat {
		abs := Absolute(page.base(doc), u)
		if !page.IsDetailURL(abs) || !seen.url(abs) {
			continue
		}
		out = append(out, NewCandidate(page.Source, "", abs, nil))
	}
	return finish(s.Name(), out, strings.Join(errs, "; "))
}

func (s Sitemap) maxChildren() int {
	if s.MaxChildSitemaps <= 0 {
		return DefaultMaxChildSitemaps
	}
	return s.MaxChildSitemaps
}

func limit(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
