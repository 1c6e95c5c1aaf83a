package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	Total string `json:"total"`
	Count int    `json:"count"`
}

func TestStatsKey(t *testing.T) {
	assert.Equal(t, "payroll:stats:c1:v3", StatsKey("c1", 3))
	assert.Equal(t, "payroll:stats:c1:v0:all:2024-06:all", StatsKey("c1", 0, "all", "2024-06", "all"))
}

func TestStatsCache_GetSet(t *testing.T) {
	ctx := context.Background()
	rdb, mock := redismock.NewClientMock()
	c := NewStatsCache(rdb, 5*time.Minute)

	key := StatsKey("c1", 2, "all")

	mock.ExpectGet(key).RedisNil()
	var got snapshot
	hit, err := c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, hit)

	mock.ExpectSet(key, `{"total":"100","count":2}`, 5*time.Minute).SetVal("OK")
	require.NoError(t, c.Set(ctx, key, snapshot{Total: "100", Count: 2}))

	mock.ExpectGet(key).SetVal(`{"total":"100","count":2}`)
	hit, err = c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, snapshot{Total: "100", Count: 2}, got)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsCache_GetErrors(t *testing.T) {
	ctx := context.Background()
	rdb, mock := redismock.NewClientMock()
	c := NewStatsCache(rdb, time.Minute)

	mock.ExpectGet("k").SetErr(errors.New("connection refused"))
	_, err := c.Get(ctx, "k", &snapshot{})
	assert.Error(t, err)

	mock.ExpectGet("k").SetVal("not-json")
	_, err = c.Get(ctx, "k", &snapshot{})
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsCache_Version(t *testing.T) {
	ctx := context.Background()
	rdb, mock := redismock.NewClientMock()
	c := NewStatsCache(rdb, time.Minute)

	mock.ExpectGet(VersionKey("c1")).RedisNil()
	v, err := c.Version(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	mock.ExpectIncr(VersionKey("c1")).SetVal(1)
	require.NoError(t, c.Bump(ctx, "c1"))

	mock.ExpectGet(VersionKey("c1")).SetVal("1")
	v, err = c.Version(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	assert.NoError(t, mock.ExpectationsWereMet())
}
