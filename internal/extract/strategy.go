package extract

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"tender_spider/internal/models"
	urlqueue "tender_spider/internal/url_queue"
)

// Outcome classifies what a strategy made of a document.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeEmpty   Outcome = "empty"
	OutcomeAbsent  Outcome = "absent"
	OutcomeFailed  Outcome = "failed"
	OutcomeBlocked Outcome = "blocked"
)

// Status is a diagnostic record for logging only.
type Status struct {
	Strategy string
	Outcome  Outcome
	Count    int
	Detail   string
}

type Result struct {
	Candidates []models.Candidate
	Status     Status
}

// Fetcher retrieves documents that a strategy needs beyond the one it was
// handed (Next.js data routes, child sitemaps).
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*models.SourceDocument, error)
}

// PageContext carries everything a strategy may need about where the
// document came from.
type PageContext struct {
	Source        string
	BaseURL       string
	Page          int
	DetailPattern *regexp.Regexp
	Exclude       []*regexp.Regexp
	Fetcher       Fetcher
}

// Strategy turns one raw document into candidates. Implementations never
// panic on malformed input and never return errors: they report a Status.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, doc *models.SourceDocument, page PageContext) Result
}

// IsDetailURL reports whether an absolute URL points at a detail page
// according to the page's include and exclude patterns, which are matched
// against the request URI (path plus query).
func (p PageContext) IsDetailURL(abs string) bool {
	target := abs
	if u, err := url.Parse(abs); err == nil && u.Path != "" {
		target = u.RequestURI()
	}
	var follow []*regexp.Regexp
	if p.DetailPattern != nil {
		follow = []*regexp.Regexp{p.DetailPattern}
	}
	return urlqueue.URLShouldBeFollowed(target, follow, p.Exclude)
}

func (p PageContext) base(doc *models.SourceDocument) string {
	if p.BaseURL != "" {
		return p.BaseURL
	}
	if doc != nil {
		return doc.URL
	}
	return ""
}

func status(name string, outcome Outcome, count int, detail string) Status {
	return Status{Strategy: name, Outcome: outcome, Count: count, Detail: detail}
}

func finish(name string, cands []models.Candidate, detail string) Result {
	if len(cands) == 0 {
		return Result{Status: status(name, OutcomeEmpty, 0, detail)}
	}
	return Result{Candidates: cands, Status: status(name, OutcomeOK, len(cands), detail)}
}

// Chain runs strategies in priority order. The first one yielding at least
// one candidate wins; every status tried is returned for logging. A blocked
// document stops the chain before any strategy runs.
type Chain []Strategy

func (c Chain) Extract(ctx context.Context, doc *models.SourceDocument, page PageContext) ([]models.Candidate, []Status) {
	if doc != nil && doc.Kind == models.KindHTML && DetectBlock(doc.Body) {
		return nil, []Status{status("chain", OutcomeBlocked, 0, "protection page detected")}
	}
	var statuses []Status
	for _, s := range c {
		res := s.Extract(ctx, doc, page)
		statuses = append(statuses, res.Status)
		if len(res.Candidates) > 0 {
			return res.Candidates, statuses
		}
		if res.Status.Outcome == OutcomeBlocked {
			break
		}
	}
	return nil, statuses
}

// Names lists the strategy names of the chain.
func (c Chain) Names() string {
	names := make([]string, len(c))
	for i, s := range c {
		names[i] = s.Name()
	}
	return strings.Join(names, ">")
}

// dedup tracks URLs and advertisement codes already emitted within one call.
// A URL carrying an adv= code counts as that code too.
type dedup map[string]bool

func (d dedup) first(key string) bool {
	if d[key] {
		return false
	}
	d[key] = true
	return true
}

func (d dedup) code(code string) bool {
	return d.first(codeKey(code))
}

func (d dedup) url(abs string) bool {
	key := ""
	if m := advCodeRe.FindStringSubmatch(abs); m != nil {
		key = codeKey(m[1])
	}
	if d[abs] || (key != "" && d[key]) {
		return false
	}
	d[abs] = true
	if key != "" {
		d[key] = true
	}
	return true
}

func codeKey(code string) string { return "adv:" + strings.ToUpper(code) }
