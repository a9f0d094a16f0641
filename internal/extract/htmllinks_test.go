package extract_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tender_spider/internal/extract"
)

const listHTML = `<html><body>
<a href="/ilan/111/antalya-kepez">  Kepez   Kiralama </a>
<a href="/ilan/111/antalya-kepez">again</a>
<a href="https://www.ilan.gov.tr/ilan/222/x"></a>
<a href="/ilan/kategori/9/ihale-duyurulari?adv=M100001&amp;currentPage=0">Open</a>
<a href="/hakkimizda">About</a>
<a href="#top">Top</a>
<a href="mailto:a@b.c">Mail</a>
<div data-x="adv=m100002"></div>
</body></html>`

func TestHTMLLinks_Extract(t *testing.T) {
	t.Parallel()

	res := extract.HTMLLinks{}.Extract(context.Background(), htmlDoc("https://www.ilan.gov.tr/ilan/kategori/9/ihale-duyurulari", listHTML), ilanPage(4))
	require.Equal(t, extract.OutcomeOK, res.Status.Outcome)

	assert.Equal(t, []string{
		"https://www.ilan.gov.tr/ilan/111/antalya-kepez",
		"https://www.ilan.gov.tr/ilan/222/x",
		extract.AdvURL("M100001", 4),
		extract.AdvURL("M100002", 4),
	}, urls(res.Candidates))

	assert.Equal(t, "Kepez Kiralama", res.Candidates[0].Title)
	assert.Equal(t, extract.PlaceholderTitle, res.Candidates[1].Title)
	assert.Equal(t, "İlan (M100001)", res.Candidates[2].Title)
}

func TestHTMLLinks_AnchorWithCodeSuppressesCodeCandidate(t *testing.T) {
	t.Parallel()

	body := `<a href="/ilan/detay?adv=M123456">Kemer Kiralama</a>
<span>adv=M123456</span>`
	res := extract.HTMLLinks{}.Extract(context.Background(), htmlDoc("https://www.ilan.gov.tr/ilan/kategori/9/ihale-duyurulari", body), ilanPage(0))

	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "https://www.ilan.gov.tr/ilan/detay?adv=M123456", res.Candidates[0].URL)
	assert.Equal(t, "M123456", res.Candidates[0].Identity)
	assert.Equal(t, "Kemer Kiralama", res.Candidates[0].Title)
}

func TestHTMLLinks_SameSiteOnly(t *testing.T) {
	t.Parallel()

	body := `<a href="https://www.antalya.bel.tr/ihale/1">Kira ihalesi</a>
<a href="https://elsewhere.org/ihale/2">Foreign</a>`
	page := extract.PageContext{
		Source:        "municipal",
		BaseURL:       "https://antalya.bel.tr",
		DetailPattern: regexp.MustCompile(`ihale`),
	}
	res := extract.HTMLLinks{SameSiteOnly: true}.Extract(context.Background(), htmlDoc("https://www.antalya.bel.tr/ihaleler", body), page)
	assert.Equal(t, []string{"https://www.antalya.bel.tr/ihale/1"}, urls(res.Candidates))
}

func TestHTMLLinks_NothingFound(t *testing.T) {
	t.Parallel()

	res := extract.HTMLLinks{}.Extract(context.Background(), htmlDoc("u", "<p>nothing</p>"), ilanPage(0))
	assert.Equal(t, extract.OutcomeEmpty, res.Status.Outcome)
	assert.Empty(t, res.Candidates)
}
