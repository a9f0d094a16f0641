package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tender_spider/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ENV_FILE", "BOT_TOKEN", "CHAT_IDS", "DEBUG", "LIST_URL_TEMPLATE", "MAX_PAGES",
		"MAX_SEND_PER_RUN", "CACHE_DIR", "REQUEST_TIMEOUT", "SLEEP_BETWEEN",
		"STORE_BACKEND", "ALLOW_KIRAYA_VERME", "GEO_PRIMARY", "SEARCH_QUERY", "DRY_RUN",
	} {
		t.Setenv(k, "")
	}
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	assert.Equal(t, 6, cfg.Logic.MaxPages)
	assert.Equal(t, 6, cfg.Logic.MaxSendPerRun)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 600*time.Millisecond, cfg.SleepBetween())
	assert.Equal(t, "antalya", cfg.Filter.Primary)
	assert.True(t, cfg.Filter.AllowKirayaVerme)
	assert.Equal(t, config.BackendFile, cfg.Store.Backend)
	assert.Equal(t, ".cache", cfg.Store.CacheDir)

	enabled := cfg.EnabledSources()
	require.Len(t, enabled, 1)
	assert.Equal(t, "ilan_list", enabled[0].Name)
	assert.Equal(t, config.DefaultListURLTemplate, enabled[0].URL)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Logic.MaxPages)
	assert.Equal(t, "ilan", cfg.Sources["ilan_list"].Bucket)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := `
debug: true
logic:
  max_pages: 2
  sleep_between: 0
filter:
  primary: mersin
sources:
  extra_sitemap:
    kind: sitemap
    enabled: true
    url: https://example.org/sitemap.xml
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))

	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("CHAT_IDS", " 111, ,222 ")
	t.Setenv("MAX_SEND_PER_RUN", "3")
	t.Setenv("SLEEP_BETWEEN", "1.5")
	t.Setenv("ALLOW_KIRAYA_VERME", "false")
	t.Setenv("LIST_URL_TEMPLATE", "https://mirror.example/list?p={page}")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "debug", cfg.LogLevel())
	assert.Equal(t, 2, cfg.Logic.MaxPages)
	assert.Equal(t, 3, cfg.Logic.MaxSendPerRun)
	assert.Equal(t, 1500*time.Millisecond, cfg.SleepBetween())
	assert.Equal(t, "mersin", cfg.Filter.Primary)
	assert.False(t, cfg.Filter.AllowKirayaVerme)
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, []string{"111", "222"}, cfg.Telegram.ChatIDs)
	assert.Equal(t, "https://mirror.example/list?p={page}", cfg.Sources["ilan_list"].URL)

	extra := cfg.Sources["extra_sitemap"]
	assert.Equal(t, "extra_sitemap", extra.Bucket)
	assert.Equal(t, config.DefaultDetailPattern, extra.DetailPattern)
	assert.Equal(t, 200, extra.MaxURLs)

	names := []string{}
	for _, s := range cfg.EnabledSources() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"extra_sitemap", "ilan_list"}, names)
	require.NoError(t, cfg.Validate())
}

func TestLoad_BoolSpellings(t *testing.T) {
	for value, want := range map[string]bool{
		"on": true, "ON": true, "1": true, "yes": true, "True": true,
		"off": false, "0": false, "no": false,
	} {
		clearEnv(t)
		t.Setenv("DEBUG", value)
		t.Setenv("DRY_RUN", value)

		cfg, err := config.Load("")
		require.NoError(t, err)
		assert.Equal(t, want, cfg.Debug, "DEBUG=%s", value)
		assert.Equal(t, want, cfg.Logic.DryRun, "DRY_RUN=%s", value)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logic: [unclosed"), 0o600))

	_, err := config.Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	t.Run("missing credentials", func(t *testing.T) {
		t.Parallel()
		cfg := config.Default()
		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, config.ErrInvalid))
		assert.Contains(t, err.Error(), "BOT_TOKEN")
		assert.Contains(t, err.Error(), "CHAT_IDS")
	})

	t.Run("dry run needs no credentials", func(t *testing.T) {
		t.Parallel()
		cfg := config.Default()
		cfg.Logic.DryRun = true
		assert.NoError(t, cfg.Validate())
	})

	t.Run("bad values", func(t *testing.T) {
		t.Parallel()
		cfg := config.Default()
		cfg.Telegram.BotToken = "t"
		cfg.Telegram.ChatIDs = []string{"1"}
		cfg.Logic.MaxPages = 0
		cfg.Logic.DetailTextMode = "fancy"
		cfg.Store.Backend = "mongo"
		src := cfg.Sources["ilan_list"]
		src.URL = "https://example.org/no-page"
		src.DetailPattern = "("
		cfg.Sources["ilan_list"] = src

		err := cfg.Validate()
		require.ErrorIs(t, err, config.ErrInvalid)
		for _, want := range []string{"logic.max_pages", "detail_text_mode", "MONGO_URI", "{page}", "bad pattern"} {
			assert.Contains(t, err.Error(), want)
		}
	})

	t.Run("no sources", func(t *testing.T) {
		t.Parallel()
		cfg := config.Default()
		cfg.Logic.DryRun = true
		src := cfg.Sources["ilan_list"]
		src.Enabled = false
		cfg.Sources["ilan_list"] = src
		require.ErrorIs(t, cfg.Validate(), config.ErrInvalid)
	})
}
