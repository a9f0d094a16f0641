package notify

import (
	"errors"
	"fmt"
	"strings"

	"tender_spider/internal/config"
	"tender_spider/internal/extract"
	"tender_spider/internal/fetch"
	"tender_spider/internal/models"
)

const (
	debugTailLines = 16
	debugLineRunes = 350
	errorMsgRunes  = 300
)

// FormatHit renders the message sent for one accepted announcement.
func FormatHit(title, url string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = extract.PlaceholderTitle
	}
	return fmt.Sprintf("📌 %s\n🔗 %s", title, url)
}

// FormatError renders a top-level failure.
func FormatError(err error) string {
	return fmt.Sprintf("❌ Bot error\n%s: %s", errorName(err), truncate(err.Error(), errorMsgRunes))
}

func errorName(err error) string {
	var fe *fetch.Error
	switch {
	case errors.As(err, &fe):
		return "FetchError"
	case errors.Is(err, config.ErrInvalid):
		return "ConfigError"
	default:
		return "Error"
	}
}

// FormatDebugSummary renders run counters followed by the last diagnostic
// lines.
func FormatDebugSummary(stats models.RunStats, maxPages int, lines []string) string {
	out := []string{
		"🧪 DEBUG tender_spider",
		"time=" + stats.StartedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		"run_id=" + stats.RunID,
		fmt.Sprintf("list_pages=%d", maxPages),
		fmt.Sprintf("list_candidates_total=%d", stats.Listed),
		fmt.Sprintf("detail_checked=%d", stats.DetailChecked),
		fmt.Sprintf("filtered=%d", stats.Filtered),
		fmt.Sprintf("new=%d", stats.New),
		fmt.Sprintf("sent=%d", stats.Sent),
		"--",
	}
	if len(lines) > debugTailLines {
		lines = lines[len(lines)-debugTailLines:]
	}
	for _, l := range lines {
		out = append(out, truncate(l, debugLineRunes))
	}
	return strings.Join(out, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
