package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Validate checks the configuration before any network activity.
// Every problem is reported, each wrapped with ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(field, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s: %s", ErrInvalid, field, fmt.Sprintf(format, args...)))
	}

	if !c.Logic.DryRun {
		if c.Telegram.BotToken == "" {
			invalid("telegram.bot_token", "BOT_TOKEN is required")
		}
		if len(c.Telegram.ChatIDs) == 0 {
			invalid("telegram.chat_ids", "CHAT_IDS is required")
		}
	}
	if c.Logic.MaxPages <= 0 {
		invalid("logic.max_pages", "must be positive, got %d", c.Logic.MaxPages)
	}
	if c.Logic.MaxSendPerRun <= 0 {
		invalid("logic.max_send_per_run", "must be positive, got %d", c.Logic.MaxSendPerRun)
	}
	if c.Logic.TimeoutSec <= 0 {
		invalid("logic.timeout_sec", "must be positive, got %d", c.Logic.TimeoutSec)
	}
	if c.Logic.SleepBetween < 0 || c.Logic.NotifyPause < 0 || c.Logic.ChatPause < 0 {
		invalid("logic", "pauses must not be negative")
	}
	switch c.Logic.DetailTextMode {
	case TextModeFull, TextModeReadability:
	default:
		invalid("logic.detail_text_mode", "unknown mode %q", c.Logic.DetailTextMode)
	}
	if strings.TrimSpace(c.Filter.Primary) == "" {
		invalid("filter.primary", "GEO_PRIMARY must not be empty")
	}
	if len(c.Filter.Positive) == 0 {
		invalid("filter.positive", "at least one positive keyword is required")
	}

	switch c.Store.Backend {
	case BackendFile:
		if c.Store.CacheDir == "" {
			invalid("store.cache_dir", "CACHE_DIR is required for the file backend")
		}
	case BackendMongo:
		if c.Store.MongoURI == "" {
			invalid("store.mongo_uri", "MONGO_URI is required for the mongo backend")
		}
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			invalid("store.redis_addr", "REDIS_ADDR is required for the redis backend")
		}
	case BackendS3:
		if c.Store.S3Bucket == "" {
			invalid("store.s3_bucket", "S3_BUCKET is required for the s3 backend")
		}
	default:
		invalid("store.backend", "unknown backend %q", c.Store.Backend)
	}
	if c.Store.Capacity <= 0 {
		invalid("store.capacity", "must be positive, got %d", c.Store.Capacity)
	}

	enabled := c.EnabledSources()
	if len(enabled) == 0 {
		invalid("sources", "no source is enabled")
	}
	for _, src := range enabled {
		c.validateSource(src, invalid)
	}

	return errors.Join(errs...)
}

func (c *Config) validateSource(src NamedSource, invalid func(field, format string, args ...any)) {
	field := "sources." + src.Name
	switch src.Kind {
	case KindList, KindAPI:
		if !strings.Contains(src.URL, "{page}") {
			invalid(field+".url", "template must contain {page}")
		}
	case KindSitemap:
		if src.URL == "" {
			invalid(field+".url", "sitemap url is required")
		}
	case KindPage:
		if len(src.URLs) == 0 && src.URL == "" {
			invalid(field+".urls", "at least one page url is required")
		}
	default:
		invalid(field+".kind", "unknown kind %q", src.Kind)
	}
	for _, p := range append([]string{src.DetailPattern}, src.ExcludePatterns...) {
		if p == "" {
			continue
		}
		if _, err := regexp.Compile(p); err != nil {
			invalid(field, "bad pattern %q: %v", p, err)
		}
	}
}
