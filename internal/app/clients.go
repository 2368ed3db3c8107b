package app

import (
	"fmt"

	"github.com/govairn/govairn-backend/internal/platform/logger"
	"github.com/govairn/govairn-backend/internal/platform/openai"
	"github.com/govairn/govairn-backend/internal/platform/redis"
	"github.com/govairn/govairn-backend/internal/platform/snapshot"
)

type Clients struct {
	OpenAI   openai.Client
	Snapshot snapshot.Client
	Cache    redis.Cache
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// OpenAI. A missing key leaves the client nil and every decision degrades.
	var llm openai.Client
	if cfg.OpenAIAPIKey != "" {
		c, err := openai.NewClient(log, openai.Config{
			BaseURL:            cfg.OpenAIBaseURL,
			APIKey:             cfg.OpenAIAPIKey,
			Model:              cfg.OpenAIModel,
			Temperature:        cfg.OpenAITemperature,
			DisableTemperature: cfg.OpenAIDisableTemperature,
			Timeout:            cfg.OpenAITimeout,
			MaxRetries:         cfg.OpenAIMaxRetries,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init openai client: %w", err)
		}
		llm = c
	}

	// Snapshot
	snap, err := snapshot.NewClient(log, cfg.SnapshotEndpoint, cfg.SnapshotAPIKey, cfg.SnapshotTimeout)
	if err != nil {
		return Clients{}, fmt.Errorf("init snapshot client: %w", err)
	}

	// Redis
	var cache redis.Cache
	if cfg.RedisAddr != "" {
		c, err := redis.NewCache(log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix+":")
		if err != nil {
			return Clients{}, fmt.Errorf("init redis cache: %w", err)
		}
		cache = c
		snap = snapshot.NewCachedClient(log, snap, cache, cfg.SnapshotCacheTTL)
	}

	return Clients{OpenAI: llm, Snapshot: snap, Cache: cache}, nil
}

func (c Clients) Close() {
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
}
