package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sdg-impact-api/pkg/config"
)

func TestNewRedisDisabled(t *testing.T) {
	client, err := NewRedis(context.Background(), config.RedisConfig{Enabled: false, Host: "localhost", Port: 6379})
	require.NoError(t, err)
	require.Nil(t, client)
}

func TestNewRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	client, err := NewRedis(ctx, config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1})
	require.Error(t, err)
	require.Nil(t, client)
}

func TestOptions(t *testing.T) {
	opts := Options(config.RedisConfig{Host: "cache.internal", Port: 6380, Password: "s3cret", DB: 2})
	require.Equal(t, "cache.internal:6380", opts.Addr)
	require.Equal(t, "s3cret", opts.Password)
	require.Equal(t, 2, opts.DB)
	require.Equal(t, ioTimeout, opts.ReadTimeout)
}
