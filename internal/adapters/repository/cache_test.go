package repository_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/vmatch/internal/adapters/repository"
	"github.com/okian/vmatch/internal/domain/model"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCachedStore_ReadThrough(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniredis(t)
	backing := repository.NewMemoryStore(ctx)
	t.Cleanup(func() { _ = backing.Close() })
	require.NoError(t, backing.SaveVolunteer(ctx, sampleVolunteer("v1", model.Available)))

	c := repository.NewCachedStore(backing, client, repository.WithCacheTTL(time.Minute), repository.WithCachePrefix("t:"))

	v, err := c.GetVolunteer(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "Volunteer v1", v.Name)
	assert.True(t, mr.Exists("t:volunteer:v1"))
	assert.Equal(t, time.Minute, mr.TTL("t:volunteer:v1"))

	// The second read is served from redis even if the backing row changes underneath.
	changed := sampleVolunteer("v1", model.Available)
	changed.Name = "Changed"
	require.NoError(t, backing.SaveVolunteer(ctx, changed))
	v, err = c.GetVolunteer(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "Volunteer v1", v.Name)

	// Writes through the cache evict.
	require.NoError(t, c.SaveVolunteer(ctx, changed))
	assert.False(t, mr.Exists("t:volunteer:v1"))
	v, err = c.GetVolunteer(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "Changed", v.Name)
}

func TestCachedStore_ProjectEviction(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniredis(t)
	backing := repository.NewMemoryStore(ctx)
	t.Cleanup(func() { _ = backing.Close() })
	require.NoError(t, backing.CreateProject(ctx, sampleProject("p1", 3)))
	c := repository.NewCachedStore(backing, client)

	_, err := c.GetProject(ctx, "p1")
	require.NoError(t, err)
	require.True(t, mr.Exists("vmatch:project:p1"))

	require.NoError(t, c.CreateApplication(ctx, sampleApplication("a1", "p1", "v1")))
	assert.False(t, mr.Exists("vmatch:project:p1"))

	p, err := c.GetProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.AppliedCount)

	require.NoError(t, c.UpdateProjectStatus(ctx, "p1", model.ProjectClosed, t0))
	assert.False(t, mr.Exists("vmatch:project:p1"))

	_, err = c.GetProject(ctx, "ghost")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.False(t, mr.Exists("vmatch:project:ghost"))
}

func TestCachedStore_RedisFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	backing := repository.NewMemoryStore(ctx)
	t.Cleanup(func() { _ = backing.Close() })
	require.NoError(t, backing.SaveVolunteer(ctx, sampleVolunteer("v1", model.Available)))
	want, err := backing.GetVolunteer(ctx, "v1")
	require.NoError(t, err)
	raw, err := json.Marshal(want)
	require.NoError(t, err)

	mock.ExpectGet("vmatch:volunteer:v1").SetErr(errors.New("connection refused"))
	mock.ExpectSet("vmatch:volunteer:v1", raw, 5*time.Minute).SetErr(errors.New("connection refused"))

	c := repository.NewCachedStore(backing, client)
	got, err := c.GetVolunteer(ctx, "v1")

	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedStore_CacheHit(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	backing := repository.NewMemoryStore(ctx)
	t.Cleanup(func() { _ = backing.Close() })

	cached := sampleProject("p9", 2)
	raw, err := json.Marshal(cached)
	require.NoError(t, err)
	mock.ExpectGet("vmatch:project:p9").SetVal(string(raw))

	c := repository.NewCachedStore(backing, client)
	p, err := c.GetProject(ctx, "p9")

	require.NoError(t, err)
	assert.Equal(t, "Homework club", p.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedStore_Ping(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	backing := repository.NewMemoryStore(ctx)
	t.Cleanup(func() { _ = backing.Close() })

	mock.ExpectPing().SetErr(errors.New("down"))
	c := repository.NewCachedStore(backing, client)

	assert.Error(t, c.Ping(ctx))
}
