package metrics_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tender_spider/internal/metrics"
	"tender_spider/internal/models"
)

func TestNew_EmptyPathIsNop(t *testing.T) {
	t.Parallel()

	rec := metrics.New("")
	assert.IsType(t, metrics.Nop{}, rec)
	assert.NoError(t, rec.Record(models.RunStats{Sent: 3}))
}

func TestTextfile_Record(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "textfile", "tender_spider.prom")
	rec := metrics.New(path)

	stats := models.RunStats{
		RunID:         "r1",
		StartedAt:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Duration:      1500 * time.Millisecond,
		Listed:        12,
		DetailChecked: 5,
		Filtered:      2,
		New:           2,
		Sent:          1,
	}
	require.NoError(t, rec.Record(stats))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)

	assert.Contains(t, out, `tender_spider_run_items{stage="listed"} 12`)
	assert.Contains(t, out, `tender_spider_run_items{stage="sent"} 1`)
	assert.Contains(t, out, "tender_spider_last_run_duration_seconds 1.5")
	assert.Contains(t, out, "tender_spider_last_run_timestamp_seconds 1.7723")

	// A second run replaces the file.
	stats.Sent = 0
	require.NoError(t, rec.Record(stats))
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `tender_spider_run_items{stage="sent"} 0`)
}
