package extract_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tender_spider/internal/extract"
	"tender_spider/internal/models"
)

type stubStrategy struct {
	name  string
	res   extract.Result
	calls *int
}

func (s stubStrategy) Name() string { return s.name }

func (s stubStrategy) Extract(context.Context, *models.SourceDocument, extract.PageContext) extract.Result {
	if s.calls != nil {
		*s.calls++
	}
	res := s.res
	res.Status.Strategy = s.name
	return res
}

func TestChain_FirstNonEmptyWins(t *testing.T) {
	t.Parallel()

	var thirdCalls int
	chain := extract.Chain{
		stubStrategy{name: "a", res: extract.Result{Status: extract.Status{Outcome: extract.OutcomeAbsent}}},
		stubStrategy{name: "b", res: extract.Result{
			Candidates: []models.Candidate{{Identity: "1"}},
			Status:     extract.Status{Outcome: extract.OutcomeOK, Count: 1},
		}},
		stubStrategy{name: "c", calls: &thirdCalls},
	}

	cands, statuses := chain.Extract(context.Background(), htmlDoc("u", "<p>ok</p>"), extract.PageContext{})
	require.Len(t, cands, 1)
	require.Len(t, statuses, 2)
	assert.Equal(t, "a", statuses[0].Strategy)
	assert.Equal(t, "b", statuses[1].Strategy)
	assert.Zero(t, thirdCalls)
	assert.Equal(t, "a>b>c", chain.Names())
}

func TestChain_BlockedShortCircuits(t *testing.T) {
	t.Parallel()

	var calls int
	chain := extract.Chain{stubStrategy{name: "a", calls: &calls}}
	cands, statuses := chain.Extract(context.Background(), htmlDoc("u", "<title>Just a moment... Cloudflare</title>"), extract.PageContext{})

	assert.Empty(t, cands)
	require.Len(t, statuses, 1)
	assert.Equal(t, extract.OutcomeBlocked, statuses[0].Outcome)
	assert.Zero(t, calls)
}

func TestChain_ListPageFallsThroughToHTML(t *testing.T) {
	t.Parallel()

	chain := extract.Chain{extract.NextData{}, extract.NextDataRoute{}, extract.HTMLLinks{}}
	page := ilanPage(0)
	page.Fetcher = &mapFetcher{}

	cands, statuses := chain.Extract(context.Background(), htmlDoc("u", listHTML), page)
	require.Len(t, statuses, 3)
	assert.Equal(t, extract.OutcomeAbsent, statuses[0].Outcome)
	assert.Equal(t, extract.OutcomeAbsent, statuses[1].Outcome)
	assert.Equal(t, extract.OutcomeOK, statuses[2].Outcome)
	assert.Len(t, cands, 4)
}

func TestPageContext_IsDetailURL(t *testing.T) {
	t.Parallel()

	page := extract.PageContext{
		DetailPattern: regexp.MustCompile(`^/ilan/`),
		Exclude:       []*regexp.Regexp{regexp.MustCompile(`^/ilan/kategori/`)},
	}
	assert.True(t, page.IsDetailURL("https://www.ilan.gov.tr/ilan/1/x"))
	assert.False(t, page.IsDetailURL("https://www.ilan.gov.tr/ilan/kategori/9"))
	assert.False(t, page.IsDetailURL("https://www.ilan.gov.tr/about"))
	assert.True(t, extract.PageContext{}.IsDetailURL("https://anything"))
}
