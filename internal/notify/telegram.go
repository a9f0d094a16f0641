package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tender_spider/internal/config"
)

const (
	DefaultTelegramAPIBase = "https://api.telegram.org"
	telegramTimeout        = 30 * time.Second
)

// Telegram sends messages through the Bot API sendMessage method. The bot
// handle is created on the first Send, which validates the token with getMe.
type Telegram struct {
	endpoint string
	token    string
	client   *contextClient

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

// contextClient binds Bot API requests to the context of the current Send.
type contextClient struct {
	http *http.Client
	ctx  context.Context
}

func (c *contextClient) Do(req *http.Request) (*http.Response, error) {
	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return c.http.Do(req.WithContext(ctx))
}

// NewTelegram builds a sender from cfg. A nil client gets a 30s timeout.
func NewTelegram(cfg config.TelegramConfig, client *http.Client) *Telegram {
	base := strings.TrimRight(cfg.APIBase, "/")
	if base == "" {
		base = DefaultTelegramAPIBase
	}
	if client == nil {
		client = &http.Client{Timeout: telegramTimeout}
	}
	return &Telegram{
		endpoint: base + "/bot%s/%s",
		token:    cfg.BotToken,
		client:   &contextClient{http: client},
	}
}

func (t *Telegram) Send(ctx context.Context, chatID, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.client.ctx = ctx
	defer func() { t.client.ctx = nil }()

	if t.bot == nil {
		bot, err := tgbotapi.NewBotAPIWithClient(t.token, t.endpoint, t.client)
		if err != nil {
			return fmt.Errorf("connect bot: %w", t.describe(err))
		}
		t.bot = bot
	}

	msg := newMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Request(msg); err != nil {
		return fmt.Errorf("send message to %s: %w", chatID, t.describe(err))
	}
	return nil
}

// newMessage addresses numeric chat ids directly and anything else as a
// channel username.
func newMessage(chatID, text string) tgbotapi.MessageConfig {
	if id, err := strconv.ParseInt(strings.TrimSpace(chatID), 10, 64); err == nil {
		return tgbotapi.NewMessage(id, text)
	}
	return tgbotapi.NewMessageToChannel(chatID, text)
}

func (t *Telegram) describe(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("telegram error %d: %s", apiErr.Code, apiErr.Message)
	}
	// Transport errors quote the request URL, which carries the bot token.
	return redact(err, t.token)
}

type redactedError struct {
	msg   string
	cause error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.cause }

func redact(err error, token string) error {
	if token == "" {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), token, "***"), cause: err}
}
