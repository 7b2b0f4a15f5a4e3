// Package suite runs repository tests against a throwaway Redis container.
package suite

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
)

const (
	containerTTL = 120 * time.Second
	maxWait      = 120 * time.Second

	redisPort  = "6379/tcp"
	redisImage = "redis"
	redisTag   = "alpine"
)

type Suite struct {
	*testing.T

	Storage *redis.Client
}

// New starts redis:alpine and returns a client to it. The container is
// purged when the test ends. Skipped with -short, since it needs Docker.
func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), maxWait)
	t.Cleanup(cancel)

	pool, err := dockertest.NewPool("")
	require.NoError(t, err, "could not connect to docker")

	pool.MaxWait = maxWait

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: redisImage,
		Tag:        redisTag,
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err, "could not start redis container")

	t.Cleanup(func() {
		if purgeErr := pool.Purge(resource); purgeErr != nil {
			t.Errorf("could not purge redis container: %v", purgeErr)
		}
	})

	// hard kill in case cleanup never runs
	_ = resource.Expire(uint(containerTTL.Seconds()))

	client := redis.NewClient(&redis.Options{Addr: resource.GetHostPort(redisPort)})
	t.Cleanup(func() { _ = client.Close() })

	err = pool.Retry(func() error {
		return client.Ping(ctx).Err()
	})
	require.NoError(t, err, "redis did not become ready")

	return ctx, &Suite{
		T:       t,
		Storage: client,
	}
}

// SeedGame writes game under its key the way the game repository lays it out,
// bypassing the repository under test.
func (that *Suite) SeedGame(ctx context.Context, game *entity.Game) {
	that.Helper()

	gameJSON, err := json.Marshal(game)
	require.NoError(that, err)
	require.NoError(that, that.Storage.Set(ctx, GameKey(game.ID), gameJSON, 0).Err())
}

// StoredGame reads the raw game at id back from Redis.
func (that *Suite) StoredGame(ctx context.Context, id string) *entity.Game {
	that.Helper()

	response, err := that.Storage.Get(ctx, GameKey(id)).Result()
	require.NoError(that, err)

	var game entity.Game
	require.NoError(that, json.Unmarshal([]byte(response), &game))

	return &game
}

func GameKey(id string) string {
	return "game:" + id
}
