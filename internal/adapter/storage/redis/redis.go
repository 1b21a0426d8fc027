package redis

import (
	"context"
	"fmt"

	"wallet-ledger/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// clientOptions maps the ledger's Redis settings onto go-redis options.
// Zero pool size and dial timeout keep the go-redis defaults.
func clientOptions(cfg config.RedisConfig) *goredis.Options {
	return &goredis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		ClientName:  cfg.ClientName,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	}
}

// NewClient connects the client shared by the idempotency cache and the
// rate limiter, and fails fast when the server does not answer PING.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	opts := clientOptions(cfg)
	client := goredis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s db=%d: %w", opts.Addr, opts.DB, err)
	}

	log.Info().
		Str("addr", opts.Addr).
		Int("db", opts.DB).
		Str("client_name", opts.ClientName).
		Int("pool_size", client.Options().PoolSize).
		Msg("redis client ready for idempotency and rate limiting")

	return client, nil
}
