package extract

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"tender_spider/internal/models"
)

const (
	TextModeFull        = "full"
	TextModeReadability = "readability"

	maxTitleRunes = 140
)

var blockTagRe = regexp.MustCompile(`(?i)<(/?)(div|p|br|li|td|th|tr|h[1-6]|section|article)\b([^>]*)>`)

// spaceBlocks pads block-level tags with spaces so their text does not run
// together once the markup is stripped.
func spaceBlocks(html string) string {
	return blockTagRe.ReplaceAllString(html, " <$1$2$3> ")
}

// ParseDetail extracts the title and plain text of a detail page. A blocked
// page yields an empty text and a blocked status. fallbackTitle is used when
// the page carries no title of its own.
func ParseDetail(doc *models.SourceDocument, fallbackTitle, mode string) (models.ExtractedArticle, Status) {
	const name = "detail"
	if doc == nil || len(doc.Body) == 0 {
		return models.ExtractedArticle{Title: pickTitle(fallbackTitle)}, status(name, OutcomeEmpty, 0, "empty body")
	}
	if DetectBlock(doc.Body) {
		return models.ExtractedArticle{Title: pickTitle(fallbackTitle)}, status(name, OutcomeBlocked, 0, "protection page detected")
	}

	gq, err := goquery.NewDocumentFromReader(strings.NewReader(spaceBlocks(string(doc.Body))))
	if err != nil {
		return models.ExtractedArticle{Title: pickTitle(fallbackTitle)}, status(name, OutcomeFailed, 0, err.Error())
	}

	title := gq.Find(`meta[property="og:title"]`).First().AttrOr("content", "")
	if collapse(title) == "" {
		title = gq.Find("title").First().Text()
	}

	article := models.ExtractedArticle{}
	var readable *models.ExtractedArticle
	if mode == TextModeReadability || collapse(title) == "" {
		readable = readableArticle(doc)
	}
	if collapse(title) == "" && readable != nil {
		title = readable.Title
	}
	if collapse(title) == "" {
		title = fallbackTitle
	}
	article.Title = pickTitle(title)

	if mode == TextModeReadability && readable != nil && readable.Text != "" {
		article.Text = readable.Text
		article.HTML = readable.HTML
		article.Excerpt = readable.Excerpt
	} else {
		gq.Find("script, style, noscript, template").Remove()
		article.Text = collapse(gq.Text())
	}

	if article.Text == "" {
		return article, status(name, OutcomeEmpty, 0, "no text")
	}
	return article, status(name, OutcomeOK, 1, "")
}

func readableArticle(doc *models.SourceDocument) *models.ExtractedArticle {
	pageURL, err := url.Parse(doc.URL)
	if err != nil {
		return nil
	}
	a, err := readability.FromReader(bytes.NewReader(doc.Body), pageURL)
	if err != nil {
		return nil
	}
	text := ""
	if a.Content != "" {
		if gq, err := goquery.NewDocumentFromReader(strings.NewReader(spaceBlocks(a.Content))); err == nil {
			text = collapse(gq.Text())
		}
	}
	return &models.ExtractedArticle{
		Title:   a.Title,
		Text:    text,
		HTML:    a.Content,
		Excerpt: a.Excerpt,
	}
}

func pickTitle(title string) string {
	title = truncateRunes(collapse(title), maxTitleRunes)
	if title == "" {
		return PlaceholderTitle
	}
	return title
}
