package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"tender_spider/internal/models"
)

// Feed reads an RSS, Atom or JSON feed; items whose link passes the page's
// detail pattern become candidates.
type Feed struct{}

func (Feed) Name() string { return "feed" }

func (f Feed) Extract(_ context.Context, doc *models.SourceDocument, page PageContext) Result {
	if doc == nil || len(doc.Body) == 0 {
		return Result{Status: status(f.Name(), OutcomeAbsent, 0, "empty document")}
	}
	if gofeed.DetectFeedType(bytes.NewReader(doc.Body)) == gofeed.FeedTypeUnknown {
		return Result{Status: status(f.Name(), OutcomeAbsent, 0, "not a feed")}
	}
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(doc.Body))
	if err != nil {
		return Result{Status: status(f.Name(), OutcomeFailed, 0, fmt.Sprintf("parse feed: %v", err))}
	}

	base := page.base(doc)
	seen := dedup{}
	var out []models.Candidate
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		link := strings.TrimSpace(item.Link)
		if link == "" && len(item.Links) > 0 {
			link = strings.TrimSpace(item.Links[0])
		}
		if link == "" {
			continue
		}
		abs := Absolute(base, link)
		if !page.IsDetailURL(abs) || !seen.url(abs) {
			continue
		}
		var raw map[string]string
		if item.Description != "" {
			raw = map[string]string{"description": collapse(item.Description)}
		}
		out = append(out, NewCandidate(page.Source, item.Title, abs, raw))
	}
	return finish(f.Name(), out, parsed.FeedType)
}
