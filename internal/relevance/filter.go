// Package relevance decides whether an announcement is about the target
// region and the wanted transaction type. All matching is done on
// normalized text.
package relevance

import (
	"sort"
	"strings"

	"tender_spider/internal/config"
	"tender_spider/internal/models"
	"tender_spider/internal/textnorm"
)

const (
	primaryPoints   = 3
	secondaryPoints = 2

	// Without the primary name two distinct secondary tokens are required.
	thresholdWithPrimary    = 3
	thresholdWithoutPrimary = 4

	ReasonGeo       = "geo"
	ReasonCategory  = "category"
	ReasonEmpty     = "empty"
	reasonNegative  = "negative:"
	reasonAmbiguous = "ambiguous:"
)

// Filter is immutable once built and safe for concurrent use.
type Filter struct {
	primary        string
	secondary      []string
	positive       []string
	negative       []string
	ambiguous      []string
	allowAmbiguous bool
}

// New normalizes the configured vocabulary once.
func New(cfg config.FilterConfig) *Filter {
	primary := textnorm.Normalize(cfg.Primary)
	var secondary []string
	for _, tok := range textnorm.Unique(cfg.GeoTokens) {
		if tok != primary {
			secondary = append(secondary, tok)
		}
	}
	return &Filter{
		primary:        primary,
		secondary:      secondary,
		positive:       textnorm.Unique(cfg.Positive),
		negative:       textnorm.Unique(cfg.Negative),
		ambiguous:      textnorm.Unique(cfg.Ambiguous),
		allowAmbiguous: cfg.AllowKirayaVerme,
	}
}

// GeoScore returns the geographic score of text and whether the primary
// region name occurs in it.
func (f *Filter) GeoScore(text string) (score int, hasPrimary bool) {
	return f.geoScore(textnorm.Normalize(text))
}

func (f *Filter) geoScore(t string) (int, bool) {
	score := 0
	hasPrimary := f.primary != "" && strings.Contains(t, f.primary)
	if hasPrimary {
		score += primaryPoints
	}
	for _, tok := range f.secondary {
		if strings.Contains(t, tok) {
			score += secondaryPoints
		}
	}
	return score, hasPrimary
}

// GeoAccept applies the geographic gate to a score.
func GeoAccept(score int, hasPrimary bool) bool {
	if hasPrimary {
		return score >= thresholdWithPrimary
	}
	return score >= thresholdWithoutPrimary
}

// CategoryMatch reports whether text is about a wanted transaction type.
// On rejection reason names the deciding rule.
func (f *Filter) CategoryMatch(text string) (bool, string) {
	return f.categoryMatch(textnorm.Normalize(text))
}

func (f *Filter) categoryMatch(t string) (bool, string) {
	if neg, ok := firstContained(t, f.negative); ok {
		return false, reasonNegative + neg
	}
	if !f.allowAmbiguous {
		if amb, ok := firstContained(t, f.ambiguous); ok {
			return false, reasonAmbiguous + amb
		}
	}
	if _, ok := firstContained(t, f.positive); !ok {
		return false, ReasonCategory
	}
	return true, ""
}

// Evaluate runs both gates independently and collects every rejection reason.
func (f *Filter) Evaluate(blob string) models.Verdict {
	t := textnorm.Normalize(blob)
	if t == "" {
		return models.Verdict{Rejected: []string{ReasonEmpty}}
	}

	score, hasPrimary := f.geoScore(t)
	v := models.Verdict{GeoScore: score, HasPrimary: hasPrimary}

	reasons := map[string]bool{}
	if !GeoAccept(score, hasPrimary) {
		reasons[ReasonGeo] = true
	}
	if ok, reason := f.categoryMatch(t); ok {
		v.CategoryMatch = true
	} else {
		reasons[reason] = true
	}

	for r := range reasons {
		v.Rejected = append(v.Rejected, r)
	}
	sort.Strings(v.Rejected)
	v.Accepted = len(v.Rejected) == 0
	return v
}

func (f *Filter) Accept(blob string) bool {
	return f.Evaluate(blob).Accepted
}

// PreScore is a cheap ranking hint: 1 when any geographic token, the primary
// included, appears in the candidate's title, URL or raw fields.
func (f *Filter) PreScore(c models.Candidate) int {
	t := textnorm.Normalize(Blob(c))
	if f.primary != "" && strings.Contains(t, f.primary) {
		return 1
	}
	if _, ok := firstContained(t, f.secondary); ok {
		return 1
	}
	return 0
}

// Rank orders candidates by PreScore, descending, keeping the original order
// among equals. The input slice is not modified.
func (f *Filter) Rank(cands []models.Candidate) []models.Candidate {
	type scored struct {
		c     models.Candidate
		score int
	}
	items := make([]scored, len(cands))
	for i, c := range cands {
		items[i] = scored{c: c, score: f.PreScore(c)}
	}
	sort.SliceStable(items, func(a, b int) bool { return items[a].score > items[b].score })

	out := make([]models.Candidate, len(items))
	for i, it := range items {
		out[i] = it.c
	}
	return out
}

// Blob joins the candidate fields used for ranking.
func Blob(c models.Candidate) string {
	parts := []string{c.Title, c.URL}
	keys := make([]string, 0, len(c.RawFields))
	for k := range c.RawFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, c.RawFields[k])
	}
	return strings.Join(parts, " ")
}

func firstContained(t string, needles []string) (string, bool) {
	for _, n := range needles {
		if strings.Contains(t, n) {
			return n, true
		}
	}
	return "", false
}
