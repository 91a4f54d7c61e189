package health

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping() error { return p.err }

func healthRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestCollect_AllConnected(t *testing.T) {
	snap := Collect(context.Background(), healthRedis(t), stubPinger{})

	assert.Equal(t, "ok", snap.Status)
	assert.Equal(t, "connected", snap.Dependencies["database"].Status)
	assert.Equal(t, "connected", snap.Dependencies["redis"].Status)
	assert.NotNil(t, snap.Dependencies["redis"].PingMs)
	assert.NotEmpty(t, snap.Runtime.GoVersion)
}

func TestCollect_NoDatabase(t *testing.T) {
	snap := Collect(context.Background(), healthRedis(t), nil)

	assert.Equal(t, "issue", snap.Status)
	assert.Equal(t, "disconnected", snap.Dependencies["database"].Status)
	assert.Nil(t, snap.Dependencies["database"].PingMs)
}

func TestCollect_DatabaseError(t *testing.T) {
	snap := Collect(context.Background(), healthRedis(t), stubPinger{err: errors.New("down")})

	assert.Equal(t, "issue", snap.Status)
	assert.Equal(t, "error", snap.Dependencies["database"].Status)
}

func TestCollect_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	snap := Collect(context.Background(), rdb, stubPinger{})
	assert.Equal(t, "issue", snap.Status)
	assert.Equal(t, "error", snap.Dependencies["redis"].Status)
}
