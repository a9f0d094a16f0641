// Package config loads the spider configuration from an optional YAML file,
// .env files and environment variables, in that order of precedence (env wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// ErrInvalid marks configuration errors. Callers match it with errors.Is.
var ErrInvalid = errors.New("invalid configuration")

const (
	KindList    = "list"
	KindAPI     = "api"
	KindSitemap = "sitemap"
	KindPage    = "page"

	TextModeFull        = "full"
	TextModeReadability = "readability"

	BackendFile  = "file"
	BackendMongo = "mongo"
	BackendRedis = "redis"
	BackendS3    = "s3"
)

type TelegramConfig struct {
	BotToken string   `yaml:"bot_token" env:"BOT_TOKEN"`
	ChatIDs  []string `yaml:"chat_ids" env:"CHAT_IDS"`
	APIBase  string   `yaml:"api_base" env:"TELEGRAM_API_BASE"`
}

type LogicConfig struct {
	MaxPages              int     `yaml:"max_pages" env:"MAX_PAGES"`
	MaxSendPerRun         int     `yaml:"max_send_per_run" env:"MAX_SEND_PER_RUN"`
	TimeoutSec            int     `yaml:"timeout_sec" env:"REQUEST_TIMEOUT"`
	SleepBetween          float64 `yaml:"sleep_between" env:"SLEEP_BETWEEN"`
	NotifyPause           float64 `yaml:"notify_pause" env:"NOTIFY_PAUSE"`
	ChatPause             float64 `yaml:"chat_pause" env:"CHAT_PAUSE"`
	UserAgent             string  `yaml:"user_agent" env:"USER_AGENT"`
	AllowInsecureFallback bool    `yaml:"allow_insecure_fallback" env:"ALLOW_INSECURE_FALLBACK"`
	RespectRobots         bool    `yaml:"respect_robots" env:"RESPECT_ROBOTS"`
	DetailTextMode        string  `yaml:"detail_text_mode" env:"DETAIL_TEXT_MODE"`
	DryRun                bool    `yaml:"dry_run" env:"DRY_RUN"`
}

// FilterConfig holds the relevance vocabulary. Matching always happens on
// normalized text, so entries may be written with or without diacritics.
type FilterConfig struct {
	Primary          string   `yaml:"primary" env:"GEO_PRIMARY"`
	GeoTokens        []string `yaml:"geo_tokens"`
	Positive         []string `yaml:"positive"`
	Negative         []string `yaml:"negative"`
	Ambiguous        []string `yaml:"ambiguous"`
	AllowKirayaVerme bool     `yaml:"allow_kiraya_verme" env:"ALLOW_KIRAYA_VERME"`
}

type StoreConfig struct {
	Backend         string `yaml:"backend" env:"STORE_BACKEND"`
	CacheDir        string `yaml:"cache_dir" env:"CACHE_DIR"`
	Capacity        int    `yaml:"capacity" env:"SEEN_CAPACITY"`
	MongoURI        string `yaml:"mongo_uri" env:"MONGO_URI"`
	MongoDatabase   string `yaml:"mongo_database" env:"MONGO_DATABASE"`
	MongoCollection string `yaml:"mongo_collection" env:"MONGO_COLLECTION"`
	RedisAddr       string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword   string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisPrefix     string `yaml:"redis_prefix" env:"REDIS_PREFIX"`
	S3Bucket        string `yaml:"s3_bucket" env:"S3_BUCKET"`
	S3Key           string `yaml:"s3_key" env:"S3_KEY"`
	S3Region        string `yaml:"s3_region" env:"S3_REGION"`
	S3Endpoint      string `yaml:"s3_endpoint" env:"S3_ENDPOINT"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile" env:"METRICS_TEXTFILE"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// SourceConfig describes one upstream. URL is a template: {page} and {query}
// are substituted per request.
type SourceConfig struct {
	Kind             string   `yaml:"kind"`
	Enabled          bool     `yaml:"enabled"`
	URL              string   `yaml:"url"`
	URLs             []string `yaml:"urls"`
	BaseURL          string   `yaml:"base_url"`
	Bucket           string   `yaml:"bucket"`
	DetailPattern    string   `yaml:"detail_pattern"`
	ExcludePatterns  []string `yaml:"exclude_patterns"`
	Query            string   `yaml:"query"`
	MaxPages         int      `yaml:"max_pages"`
	MaxURLs          int      `yaml:"max_urls"`
	MaxChildSitemaps int      `yaml:"max_child_sitemaps"`
	Priority         int      `yaml:"priority"`
}

type Config struct {
	Debug    bool                    `yaml:"debug" env:"DEBUG"`
	Telegram TelegramConfig          `yaml:"telegram"`
	Logic    LogicConfig             `yaml:"logic"`
	Filter   FilterConfig            `yaml:"filter"`
	Store    StoreConfig             `yaml:"store"`
	Metrics  MetricsConfig           `yaml:"metrics"`
	Log      LogConfig               `yaml:"log"`
	Sources  map[string]SourceConfig `yaml:"sources"`
}

// NamedSource is a SourceConfig together with its key in Config.Sources.
type NamedSource struct {
	Name string
	SourceConfig
}

// Load builds the configuration. An empty path or a missing file is not an
// error: defaults plus the environment are enough to run.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("load environment files: %w", err)
	}
	applyEnvOverrides(cfg)
	applySourceEnv(cfg)
	cfg.setSourceDefaults()

	return cfg, nil
}

func applySourceEnv(cfg *Config) {
	if tpl := strings.TrimSpace(os.Getenv("LIST_URL_TEMPLATE")); tpl != "" {
		src := cfg.Sources["ilan_list"]
		src.URL = tpl
		cfg.Sources["ilan_list"] = src
	}
	if q := strings.TrimSpace(os.Getenv("SEARCH_QUERY")); q != "" {
		for name, src := range cfg.Sources {
			if src.Kind == KindAPI {
				src.Query = q
				cfg.Sources[name] = src
			}
		}
	}
}

// EnabledSources returns the enabled sources ordered by priority, then name.
func (c *Config) EnabledSources() []NamedSource {
	var out []NamedSource
	for name, src := range c.Sources {
		if src.Enabled {
			out = append(out, NamedSource{Name: name, SourceConfig: src})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Logic.TimeoutSec) * time.Second
}

func (c *Config) SleepBetween() time.Duration { return seconds(c.Logic.SleepBetween) }
func (c *Config) NotifyPause() time.Duration  { return seconds(c.Logic.NotifyPause) }
func (c *Config) ChatPause() time.Duration    { return seconds(c.Logic.ChatPause) }

// LogLevel returns the effective level; debug mode forces "debug".
func (c *Config) LogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.Log.Level
}

// HasTelegram reports whether delivery credentials are present.
func (c *Config) HasTelegram() bool {
	return c.Telegram.BotToken != "" && len(c.Telegram.ChatIDs) > 0
}

func seconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
