package db

import (
	"context"
	"fmt"

	"tender_spider/internal/config"
	"tender_spider/internal/logger"
)

// Open builds the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig, log logger.Logger) (Backend, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileBackend(cfg.CacheDir), nil
	case config.BackendMongo:
		m, err := NewMongoDB(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.BackendRedis:
		r, err := NewRedisBackend(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return r, nil
	case config.BackendS3:
		b, err := NewS3Backend(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", config.ErrInvalid, cfg.Backend)
	}
}
