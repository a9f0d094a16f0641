package extract

import (
	"strings"

	"tender_spider/internal/textnorm"
)

const blockScanBytes = 5000

var blockMarkers = []string{
	"cloudflare",
	"attention required",
	"access denied",
	"captcha",
	"bot detection",
	"verify you are human",
	"security check",
}

// DetectBlock reports whether the start of a response looks like a
// bot-protection or challenge page.
func DetectBlock(body []byte) bool {
	if len(body) > blockScanBytes {
		body = body[:blockScanBytes]
	}
	t := textnorm.Normalize(string(body))
	for _, m := range blockMarkers {
		if strings.Contains(t, m) {
			return true
		}
	}
	return false
}
