package cli

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/ivy"
	"github.com/aretw0/ivy/pkg/adapters/file"
	"github.com/aretw0/ivy/pkg/adapters/pebble"
	redisadapter "github.com/aretw0/ivy/pkg/adapters/redis"
	"github.com/aretw0/ivy/pkg/observability"
	"github.com/aretw0/ivy/pkg/persistence/middleware"
	"github.com/aretw0/ivy/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
)

// EngineOptions are the engine settings shared by every command.
type EngineOptions struct {
	RedisURL      string
	DataDir       string
	FileDir       string
	LogLevel      string
	LogJSON       bool
	Strict        bool
	MaxDepth      int
	Mask          []string
	EncryptionKey string // base64, 32 bytes once decoded
}

type engineBundle struct {
	engine   *ivy.Engine
	registry *prometheus.Registry
	logger   *slog.Logger
}

// createEngine initializes an engine with standard CLI conventions: redis, pebble or
// file persistence when configured, PII masking and encryption middlewares, debug log
// hooks and a private metrics registry.
func createEngine(opts EngineOptions, render ports.RenderHost) (*engineBundle, error) {
	logger, err := createLogger(opts.LogLevel, opts.LogJSON)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewMetrics(registry)

	engineOpts := []ivy.Option{
		ivy.WithLogger(logger),
		ivy.WithHooks(observability.Chain(observability.LogHooks(logger), metrics.Hooks())),
		ivy.WithRenderHost(render),
	}
	if opts.Strict {
		engineOpts = append(engineOpts, ivy.WithStrictScope())
	}
	if opts.MaxDepth > 0 {
		engineOpts = append(engineOpts, ivy.WithMaxDepth(opts.MaxDepth))
	}

	// 1. Middlewares (only meaningful with a datastore)
	var mws []middleware.Middleware
	if len(opts.Mask) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(opts.Mask))
	}
	if opts.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(opts.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("invalid encryption key: want 32 bytes, got %d", len(key))
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	if len(mws) > 0 {
		if countSet(opts.RedisURL, opts.DataDir, opts.FileDir) == 0 {
			return nil, errors.New("--mask and --encryption-key need a datastore")
		}
		engineOpts = append(engineOpts, ivy.WithStoreMiddleware(mws...))
	}

	// 2. Persistence
	switch {
	case countSet(opts.RedisURL, opts.DataDir, opts.FileDir) > 1:
		return nil, errors.New("--redis, --data-dir and --file-dir cannot be used together")
	case opts.RedisURL != "":
		redisOpts, err := goredis.ParseURL(opts.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		client := goredis.NewClient(redisOpts)
		engineOpts = append(engineOpts,
			ivy.WithDatastore(redisadapter.NewFromClient(client)),
			ivy.WithLocker(redisadapter.NewLocker(client, "ivy:")),
		)
		logger.Info("Using redis datastore", "addr", redisOpts.Addr)
	case opts.DataDir != "":
		store, err := pebble.Open(opts.DataDir)
		if err != nil {
			return nil, err
		}
		engineOpts = append(engineOpts, ivy.WithDatastore(store))
		logger.Info("Using pebble datastore", "dir", opts.DataDir)
	case opts.FileDir != "":
		engineOpts = append(engineOpts, ivy.WithDatastore(file.New(opts.FileDir)))
		logger.Info("Using file datastore", "dir", opts.FileDir)
	}

	engine, err := ivy.New(engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return &engineBundle{engine: engine, registry: registry, logger: logger}, nil
}

func countSet(values ...string) int {
	n := 0
	for _, v := range values {
		if v != "" {
			n++
		}
	}
	return n
}
