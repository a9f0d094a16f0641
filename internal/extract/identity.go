package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"tender_spider/internal/models"
)

const (
	// PlaceholderTitle is used whenever no usable title is found.
	PlaceholderTitle = "İlan"

	portalBase    = "https://www.ilan.gov.tr"
	advURLPattern = portalBase + "/ilan/kategori/9/ihale-duyurulari?adv=%s&currentPage=%d"
)

var (
	advCodeRe  = regexp.MustCompile(`(?i)\badv=([A-Z]\d{6})\b`)
	detailIDRe = regexp.MustCompile(`/ilan/(\d+)`)
)

// MakeIdentity derives the dedup key of an announcement from its URL alone:
// the upper-cased advertisement code, else the numeric detail id, else the URL.
func MakeIdentity(rawURL string) string {
	if m := advCodeRe.FindStringSubmatch(rawURL); m != nil {
		return strings.ToUpper(m[1])
	}
	if m := detailIDRe.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return rawURL
}

// AdvCodes returns the distinct upper-cased advertisement codes in s, in
// order of first appearance.
func AdvCodes(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range advCodeRe.FindAllStringSubmatch(s, -1) {
		code := strings.ToUpper(m[1])
		if !seen[code] {
			seen[code] = true
			out = append(out, code)
		}
	}
	return out
}

// AdvURL builds the listing URL that opens the announcement with the given code.
func AdvURL(code string, page int) string {
	return fmt.Sprintf(advURLPattern, strings.ToUpper(code), page)
}

// AdvTitle is the provisional title of a code-only candidate.
func AdvTitle(code string) string {
	return fmt.Sprintf("%s (%s)", PlaceholderTitle, strings.ToUpper(code))
}

// Absolute resolves ref against base. Unparseable input is returned trimmed.
func Absolute(base, ref string) string {
	ref = strings.TrimSpace(ref)
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if r.IsAbs() {
		return r.String()
	}
	b, err := url.Parse(base)
	if err != nil || base == "" {
		return ref
	}
	return b.ResolveReference(r).String()
}

// NewCandidate builds a candidate with its identity filled in.
func NewCandidate(source, title, rawURL string, raw map[string]string) models.Candidate {
	title = collapse(title)
	if title == "" {
		title = PlaceholderTitle
	}
	return models.Candidate{
		Identity:  MakeIdentity(rawURL),
		Title:     title,
		URL:       rawURL,
		Source:    source,
		RawFields: raw,
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
