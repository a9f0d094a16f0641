package textnorm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tender_spider/internal/textnorm"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"dotted capital I", "İHALE", "ihale"},
		{"dotless capital I", "KIRALAMA", "kiralama"},
		{"diacritics", "Muratpaşa Konyaaltı Gündoğmuş Döşemealtı Çay", "muratpasa konyaalti gundogmus dosemealti cay"},
		{"whitespace runs", "  Aksu \t\n  Kepez  ", "aksu kepez"},
		{"combining dot", "i̇hale", "ihale"},
		{"combining dot after other letter kept", "K\u0307ira", "k\u0307ira"},
		{"ascii passthrough", "kira ihalesi", "kira ihalesi"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, textnorm.Normalize(tc.in))
		})
	}
}

func TestNormalize_CaseAndDiacriticInsensitive(t *testing.T) {
	t.Parallel()

	assert.Equal(t, textnorm.Normalize("ihale"), textnorm.Normalize("İHALE"))
	assert.Equal(t, textnorm.Normalize("isletme hakki"), textnorm.Normalize("İŞLETME HAKKI"))
	assert.Equal(t, textnorm.Normalize("gazipasa"), textnorm.Normalize("Gazipaşa"))
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"Antalya Aksu Kiralama İhalesi",
		"İŞLETME HAKKI  kiraya   verilecektir",
		"ÇĞİÖŞÜ çğıöşü",
		"https://www.ilan.gov.tr/ilan/123456/x",
	}
	for _, in := range inputs {
		once := textnorm.Normalize(in)
		assert.Equal(t, once, textnorm.Normalize(once), "input %q", in)
	}
}

func TestFirstMatch(t *testing.T) {
	t.Parallel()

	needle, ok := textnorm.FirstMatch("Taşınmaz SATIŞI ilanı", []string{"kira", "satış"})
	assert.True(t, ok)
	assert.Equal(t, "satış", needle)

	_, ok = textnorm.FirstMatch("", []string{"kira"})
	assert.False(t, ok)

	assert.False(t, textnorm.ContainsAny("Kepez", []string{"", "   "}))
	assert.True(t, textnorm.ContainsAny("KEPEZ belediyesi", []string{"kepez"}))
}

func TestUnique(t *testing.T) {
	t.Parallel()

	got := textnorm.Unique([]string{"muratpaşa", "muratpasa", "Kaş", "kas", "", "Aksu"})
	assert.Equal(t, []string{"muratpasa", "kas", "aksu"}, got)
}
