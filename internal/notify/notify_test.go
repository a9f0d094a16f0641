package notify_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tender_spider/internal/config"
	"tender_spider/internal/fetch"
	"tender_spider/internal/logger"
	"tender_spider/internal/models"
	"tender_spider/internal/notify"
)

type recordedMessage struct {
	Path string
	Form url.Values
}

const getMeResponse = `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"spider","username":"spider_bot"}}`

// telegramServer answers getMe and replies to sendMessage with status and body.
func telegramServer(t *testing.T, status int, body string) (*httptest.Server, *[]recordedMessage) {
	t.Helper()
	var (
		mu   sync.Mutex
		msgs []recordedMessage
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/getMe") {
			fmt.Fprint(w, getMeResponse)
			return
		}
		assert.NoError(t, r.ParseForm())
		mu.Lock()
		msgs = append(msgs, recordedMessage{Path: r.URL.Path, Form: r.PostForm})
		mu.Unlock()
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &msgs
}

const sentMessage = `{"ok":true,"result":{"message_id":7,"date":1772355600,"chat":{"id":-1001,"type":"channel"}}}`

func TestTelegram_Send(t *testing.T) {
	t.Parallel()

	srv, msgs := telegramServer(t, http.StatusOK, sentMessage)
	tg := notify.NewTelegram(config.TelegramConfig{BotToken: "123:abc", APIBase: srv.URL + "/"}, nil)

	require.NoError(t, tg.Send(context.Background(), "-1001", "📌 Aksu\n🔗 https://www.ilan.gov.tr/ilan/1"))
	require.NoError(t, tg.Send(context.Background(), "@antalya_ihale", "second"))

	require.Len(t, *msgs, 2)
	got := (*msgs)[0]
	assert.Equal(t, "/bot123:abc/sendMessage", got.Path)
	assert.Equal(t, "-1001", got.Form.Get("chat_id"))
	assert.Equal(t, "📌 Aksu\n🔗 https://www.ilan.gov.tr/ilan/1", got.Form.Get("text"))
	assert.Equal(t, "true", got.Form.Get("disable_web_page_preview"))

	assert.Equal(t, "@antalya_ihale", (*msgs)[1].Form.Get("chat_id"))
}

func TestTelegram_SendReportsAPIError(t *testing.T) {
	t.Parallel()

	srv, _ := telegramServer(t, http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)
	tg := notify.NewTelegram(config.TelegramConfig{BotToken: "t", APIBase: srv.URL}, nil)

	err := tg.Send(context.Background(), "42", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegram_TransportErrorHidesToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	tg := notify.NewTelegram(config.TelegramConfig{BotToken: "secret-token", APIBase: base}, nil)
	err := tg.Send(context.Background(), "42", "hi")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestTelegram_SendHonorsContext(t *testing.T) {
	t.Parallel()

	srv, msgs := telegramServer(t, http.StatusOK, sentMessage)
	tg := notify.NewTelegram(config.TelegramConfig{BotToken: "t", APIBase: srv.URL}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tg.Send(ctx, "42", "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, *msgs)
}

type fakeNotifier struct {
	fail map[string]bool
	sent []string
}

func (f *fakeNotifier) Send(_ context.Context, dest, text string) error {
	if f.fail[dest] {
		return errors.New("boom")
	}
	f.sent = append(f.sent, dest+"|"+text)
	return nil
}

func TestBroadcast_ContinuesAfterFailure(t *testing.T) {
	t.Parallel()

	n := &fakeNotifier{fail: map[string]bool{"b": true}}
	delivered := notify.Broadcast(context.Background(), n, []string{"a", "b", "c"}, "msg", 0, logger.NewNop())

	assert.Equal(t, 2, delivered)
	assert.Equal(t, []string{"a|msg", "c|msg"}, n.sent)
}

func TestBroadcast_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := &fakeNotifier{}
	delivered := notify.Broadcast(ctx, n, []string{"a", "b"}, "msg", time.Hour, nil)

	assert.Equal(t, 1, delivered)
	assert.Equal(t, []string{"a|msg"}, n.sent)
}

func TestLogNotifier(t *testing.T) {
	t.Parallel()
	assert.NoError(t, notify.NewLogNotifier(nil).Send(context.Background(), "a", "b"))
}

func TestFormatHit(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "📌 Aksu Kiralama\n🔗 https://x/ilan/1", notify.FormatHit("  Aksu Kiralama ", "https://x/ilan/1"))
	assert.Equal(t, "📌 İlan\n🔗 https://x/ilan/2", notify.FormatHit("", "https://x/ilan/2"))
}

func TestFormatError(t *testing.T) {
	t.Parallel()

	cfgErr := fmt.Errorf("%w: telegram.bot_token: required", config.ErrInvalid)
	assert.Equal(t, "❌ Bot error\nConfigError: "+cfgErr.Error(), notify.FormatError(cfgErr))

	fetchErr := fmt.Errorf("list page: %w", fetch.ClassifyHTTPStatus(http.StatusBadGateway, "https://x"))
	assert.True(t, strings.HasPrefix(notify.FormatError(fetchErr), "❌ Bot error\nFetchError: "))

	long := errors.New(strings.Repeat("x", 500))
	assert.Equal(t, "❌ Bot error\nError: "+strings.Repeat("x", 300), notify.FormatError(long))
}

func TestFormatDebugSummary(t *testing.T) {
	t.Parallel()

	lines := make([]string, 20)
	for i := range lines {
		lines[i] = fmt.Sprintf("line-%02d", i)
	}
	stats := models.RunStats{RunID: "r1", Listed: 7, DetailChecked: 3, Filtered: 1, New: 1, Sent: 1}
	out := notify.FormatDebugSummary(stats, 6, lines)

	assert.Contains(t, out, "list_candidates_total=7")
	assert.Contains(t, out, "run_id=r1")
	assert.NotContains(t, out, "line-03")
	assert.Contains(t, out, "line-04")
	assert.Contains(t, out, "line-19")
}
