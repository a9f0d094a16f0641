package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"tender_spider/internal/models"
)

var nextDataRe = regexp.MustCompile(`(?is)<script[^>]+id=["']__NEXT_DATA__["'][^>]*>(.*?)</script>`)

var (
	walkURLKeys   = []string{"url", "link", "path", "href"}
	walkTitleKeys = []string{"title", "name", "baslik"}
)

// FindNextData returns the decoded __NEXT_DATA__ payload of an HTML page.
// found is false when the block is missing; err is set when it is present
// but not valid JSON.
func FindNextData(body []byte) (tree any, found bool, err error) {
	m := nextDataRe.FindSubmatch(body)
	if m == nil {
		return nil, false, nil
	}
	tree, err = decodeJSON([]byte(strings.TrimSpace(string(m[1]))))
	return tree, true, err
}

// BuildID returns the Next.js build id of a decoded payload.
func BuildID(tree any) string {
	obj, ok := tree.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := obj["buildId"].(string)
	return strings.TrimSpace(s)
}

// PickFromJSON collects candidates from any decoded JSON tree: every
// advertisement code in the serialized tree first, then every object with a
// detail-page URL and a title.
func PickFromJSON(tree any, page PageContext) []models.Candidate {
	var out []models.Candidate
	seen := dedup{}

	for _, code := range AdvCodes(serialize(tree)) {
		if !seen.code(code) {
			continue
		}
		out = append(out, NewCandidate(page.Source, AdvTitle(code), AdvURL(code, page.Page), nil))
	}

	base := page.BaseURL
	if base == "" {
		base = portalBase
	}
	Walk(tree, func(obj map[string]any) {
		ref := firstString(obj, walkURLKeys...)
		if ref == "" || !strings.Contains(ref, "/ilan/") {
			return
		}
		abs := Absolute(base, ref)
		if !page.IsDetailURL(abs) || !seen.url(abs) {
			return
		}
		out = append(out, NewCandidate(page.Source, firstString(obj, walkTitleKeys...), abs, nil))
	})
	return out
}

// NextData extracts candidates from the __NEXT_DATA__ block embedded in a
// server-rendered list page.
type NextData struct{}

func (NextData) Name() string { return "next_data" }

func (n NextData) Extract(_ context.Context, doc *models.SourceDocument, page PageContext) Result {
	if doc == nil || len(doc.Body) == 0 {
		return Result{Status: status(n.Name(), OutcomeAbsent, 0, "empty document")}
	}
	tree, found, err := FindNextData(doc.Body)
	if !found {
		return Result{Status: status(n.Name(), OutcomeAbsent, 0, "no __NEXT_DATA__ block")}
	}
	if err != nil {
		return Result{Status: status(n.Name(), OutcomeFailed, 0, fmt.Sprintf("decode: %v", err))}
	}
	return finish(n.Name(), PickFromJSON(tree, page), "")
}

// NextDataRoute follows the build id of the embedded payload to the Next.js
// data route of the same listing and picks candidates from that JSON.
type NextDataRoute struct {
	// Path is the listing route below /_next/data/<buildId>.
	Path string
}

const defaultNextRoutePath = "/ilan/kategori/9/ihale-duyurulari.json?currentPage=%d&ats=3"

func (NextDataRoute) Name() string { return "next_data_route" }

// RouteURL builds the data-route URL for a build id and page.
func (r NextDataRoute) RouteURL(base, buildID string, page int) string {
	path := r.Path
	if path == "" {
		path = defaultNextRoutePath
	}
	if base == "" {
		base = portalBase
	}
	return strings.TrimRight(base, "/") + "/_next/data/" + buildID + fmt.Sprintf(path, page)
}

func (r NextDataRoute) Extract(ctx context.Context, doc *models.SourceDocument, page PageContext) Result {
	if doc == nil || page.Fetcher == nil {
		return Result{Status: status(r.Name(), OutcomeAbsent, 0, "no fetcher")}
	}
	tree, found, err := FindNextData(doc.Body)
	if !found || err != nil {
		return Result{Status: status(r.Name(), OutcomeAbsent, 0, "no __NEXT_DATA__ block")}
	}
	buildID := BuildID(tree)
	if buildID == "" {
		return Result{Status: status(r.Name(), OutcomeAbsent, 0, "no buildId")}
	}

	routeURL := r.RouteURL(page.BaseURL, buildID, page.Page)
	routeDoc, err := page.Fetcher.Get(ctx, routeURL)
	if err != nil {
		return Result{Status: status(r.Name(), OutcomeFailed, 0, fmt.Sprintf("fetch %s: %v", routeURL, err))}
	}
	routeTree, err := decodeJSON(routeDoc.Body)
	if err != nil {
		return Result{Status: status(r.Name(), OutcomeFailed, 0, fmt.Sprintf("decode %s: %v", routeURL, err))}
	}
	return finish(r.Name(), PickFromJSON(routeTree, page), routeURL)
}
