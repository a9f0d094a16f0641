package db_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tender_spider/internal/config"
	"tender_spider/internal/db"
	"tender_spider/internal/models"
)

// These tests talk to real services and run only when their address is set.

func liveState() models.SeenState {
	return models.SeenState{
		"ilan":      {"123456": "2026-03-01T09:00:00Z", "M654321": "2026-03-01T09:05:00Z"},
		"municipal": {"https://www.antalya.bel.tr/ihale/31": "2026-03-02T10:00:00Z"},
	}
}

func TestMongoDB_Live(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := config.Default().Store
	cfg.MongoURI = uri
	cfg.MongoCollection = fmt.Sprintf("seen_test_%d", time.Now().UnixNano())

	backend, err := db.NewMongoDB(ctx, cfg, nil)
	require.NoError(t, err)
	defer backend.Close(ctx)

	require.NoError(t, backend.Save(ctx, liveState()))
	got, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, liveState(), got)

	trimmed := liveState()
	delete(trimmed["ilan"], "M654321")
	require.NoError(t, backend.Save(ctx, trimmed))
	got, err = backend.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, trimmed, got)
}

func TestRedisBackend_Live(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := config.Default().Store
	cfg.RedisAddr = addr
	cfg.RedisPrefix = fmt.Sprintf("tender_spider_test_%d", time.Now().UnixNano())

	backend, err := db.NewRedisBackend(ctx, cfg)
	require.NoError(t, err)
	defer backend.Close(ctx)

	require.NoError(t, backend.Save(ctx, liveState()))
	got, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, liveState(), got)

	require.NoError(t, backend.Save(ctx, models.SeenState{}))
	got, err = backend.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}
