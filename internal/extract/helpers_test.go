package extract_test

import (
	"context"
	"fmt"
	"regexp"

	"tender_spider/internal/extract"
	"tender_spider/internal/models"
)

// mapFetcher serves canned bodies and records every requested URL.
type mapFetcher struct {
	bodies    map[string]string
	requested []string
}

func (f *mapFetcher) Get(_ context.Context, rawURL string) (*models.SourceDocument, error) {
	f.requested = append(f.requested, rawURL)
	body, ok := f.bodies[rawURL]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", rawURL)
	}
	return &models.SourceDocument{URL: rawURL, StatusCode: 200, Body: []byte(body)}, nil
}

func htmlDoc(url, body string) *models.SourceDocument {
	return &models.SourceDocument{URL: url, Kind: models.KindHTML, StatusCode: 200, Body: []byte(body)}
}

func ilanPage(page int) extract.PageContext {
	return extract.PageContext{
		Source:        "ilan_list",
		BaseURL:       "https://www.ilan.gov.tr",
		Page:          page,
		DetailPattern: regexp.MustCompile(`^/ilan/`),
		Exclude:       []*regexp.Regexp{regexp.MustCompile(`^/ilan/kategori/`)},
	}
}

func urls(cands []models.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.URL
	}
	return out
}
