// AngelaMos | 2026
// redis_test.go

package core

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/storefront/backend/internal/config"
)

func TestNewRedisConnects(t *testing.T) {
	mr := miniredis.RunT(t)

	r, err := NewRedis(context.Background(), config.RedisConfig{
		URL:      "redis://" + mr.Addr() + "/0",
		PoolSize: 4,
	}, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	assert.NoError(t, r.Ping(context.Background()))
	assert.NotNil(t, r.PoolStats())
}

func TestNewRedisRejectsBadConfig(t *testing.T) {
	_, err := NewRedis(context.Background(), config.RedisConfig{}, "")
	require.Error(t, err)

	_, err = NewRedis(context.Background(), config.RedisConfig{URL: "http://nope"}, "")
	require.ErrorContains(t, err, "parse redis url")
}

func TestRedisPingFailsWhenServerGone(t *testing.T) {
	mr := miniredis.RunT(t)

	r, err := NewRedis(context.Background(), config.RedisConfig{
		URL: "redis://" + mr.Addr(),
	}, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	mr.Close()

	assert.ErrorContains(t, r.Ping(context.Background()), "ping redis")
}

func TestNilRedisClose(t *testing.T) {
	var r *Redis
	assert.NoError(t, r.Close())
}
