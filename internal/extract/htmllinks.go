package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tender_spider/internal/models"
)

// HTMLLinks picks detail links out of anchors and, independently, every
// advertisement code appearing anywhere in the raw HTML.
type HTMLLinks struct {
	// SameSiteOnly drops links that resolve to another host.
	SameSiteOnly bool
}

func (HTMLLinks) Name() string { return "html_links" }

func (h HTMLLinks) Extract(_ context.Context, doc *models.SourceDocument, page PageContext) Result {
	if doc == nil || len(doc.Body) == 0 {
		return Result{Status: status(h.Name(), OutcomeAbsent, 0, "empty document")}
	}
	gq, err := goquery.NewDocumentFromReader(bytes.NewReader(doc.Body))
	if err != nil {
		return Result{Status: status(h.Name(), OutcomeFailed, 0, fmt.Sprintf("parse html: %v", err))}
	}

	base := page.base(doc)
	baseHost := hostOf(base)
	seen := dedup{}
	var out []models.Candidate

	gq.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") ||
			strings.HasPrefix(href, "javascript:") {
			return
		}
		abs := Absolute(base, href)
		if h.SameSiteOnly && baseHost != "" && hostOf(abs) != baseHost {
			return
		}
		if !page.IsDetailURL(abs) || !seen.url(abs) {
			return
		}
		title := s.AttrOr("title", "")
		if t := collapse(s.Text()); t != "" {
			title = t
		}
		out = append(out, NewCandidate(page.Source, title, abs, nil))
	})

	for _, code := range AdvCodes(string(doc.Body)) {
		if !seen.code(code) {
			continue
		}
		out = append(out, NewCandidate(page.Source, AdvTitle(code), AdvURL(code, page.Page), nil))
	}
	return finish(h.Name(), out, "")
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}
