package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"tender_spider/internal/models"
)

var (
	apiWrapperKeys  = []string{"ads", "items", "results", "records", "content", "data", "list"}
	apiEnvelopeKeys = []string{"result", "data", "payload"}

	apiTitleKeys    = []string{"title", "adTitle", "baslik", "name", "description"}
	apiURLKeys      = []string{"urlStr", "url", "link", "detailUrl", "path", "href"}
	apiCityKeys     = []string{"city", "cityName", "addressCityName", "il"}
	apiDistrictKeys = []string{"district", "county", "countyName", "addressCountyName", "ilce"}
	apiIDKeys       = []string{"id", "adId", "advertId"}

	numericIDRe = regexp.MustCompile(`^\d+$`)
)

// RawCity and RawDistrict are the RawFields keys filled by JSONAPI.
const (
	RawCity     = "city"
	RawDistrict = "district"
)

// JSONAPI maps the records of a JSON search API page to candidates. The
// record array may sit under several wrapper names, at top level or inside
// an envelope object.
type JSONAPI struct{}

func (JSONAPI) Name() string { return "json_api" }

func (j JSONAPI) Extract(_ context.Context, doc *models.SourceDocument, page PageContext) Result {
	if doc == nil || len(doc.Body) == 0 {
		return Result{Status: status(j.Name(), OutcomeAbsent, 0, "empty document")}
	}
	tree, err := decodeJSON(doc.Body)
	if err != nil {
		return Result{Status: status(j.Name(), OutcomeFailed, 0, fmt.Sprintf("decode: %v", err))}
	}
	records, where := FindRecords(tree)
	if records == nil {
		return Result{Status: status(j.Name(), OutcomeAbsent, 0, "no record array")}
	}

	base := page.base(doc)
	seen := dedup{}
	var out []models.Candidate
	for _, r := range records {
		obj, ok := r.(map[string]any)
		if !ok {
			continue
		}
		c, ok := recordCandidate(obj, base, page.Source)
		if !ok || !seen.url(c.URL) {
			continue
		}
		out = append(out, c)
	}
	return finish(j.Name(), out, where)
}

// FindRecords locates the record array of an API response and reports the
// path it was found at.
func FindRecords(tree any) ([]any, string) {
	if arr, ok := tree.([]any); ok {
		return arr, "$"
	}
	obj, ok := tree.(map[string]any)
	if !ok {
		return nil, ""
	}
	if arr, key := wrapped(obj); arr != nil {
		return arr, key
	}
	for _, env := range apiEnvelopeKeys {
		inner, ok := obj[env].(map[string]any)
		if !ok {
			continue
		}
		if arr, key := wrapped(inner); arr != nil {
			return arr, env + "." + key
		}
	}
	return nil, ""
}

func wrapped(obj map[string]any) ([]any, string) {
	for _, k := range apiWrapperKeys {
		if arr, ok := obj[k].([]any); ok {
			return arr, k
		}
	}
	return nil, ""
}

func recordCandidate(obj map[string]any, base, source string) (models.Candidate, bool) {
	ref := firstString(obj, apiURLKeys...)
	if ref == "" {
		id := firstString(obj, apiIDKeys...)
		if !numericIDRe.MatchString(id) {
			return models.Candidate{}, false
		}
		ref = "/ilan/" + id
	}
	if base == "" {
		base = portalBase
	}
	abs := Absolute(base, ref)

	raw := map[string]string{}
	if city := firstString(obj, apiCityKeys...); city != "" {
		raw[RawCity] = city
	}
	if district := firstString(obj, apiDistrictKeys...); district != "" {
		raw[RawDistrict] = district
	}
	if len(raw) == 0 {
		raw = nil
	}
	return NewCandidate(source, strings.TrimSpace(firstString(obj, apiTitleKeys...)), abs, raw), true
}
