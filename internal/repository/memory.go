package repository

import (
	"context"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
)

type memEntry struct {
	game      *entity.Game
	expiresAt time.Time
}

type memGame struct {
	mu    sync.RWMutex
	games map[string]memEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryGameRepository keeps games in process memory. Like the redis
// repository, a game expires ttl after its last write; ttl <= 0 keeps games
// until they are deleted. Stored games are cloned on the way in and out.
func NewMemoryGameRepository(ttl time.Duration) GameRepository {
	return &memGame{
		games: make(map[string]memEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (that *memGame) CreateOrUpdate(_ context.Context, game *entity.Game) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.store(game)

	return nil
}

func (that *memGame) GetByID(_ context.Context, id string) (*entity.Game, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	entry, ok := that.lookup(id)
	if !ok {
		return &entity.Game{}, ErrGameNotFound
	}

	return entry.game.Clone(), nil
}

// Update holds the write lock while apply runs, so updates of one process
// never interleave.
func (that *memGame) Update(_ context.Context, id string, apply UpdateFunc) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	entry, ok := that.lookup(id)
	if !ok {
		return nil, ErrGameNotFound
	}

	next, err := apply(entry.game.Clone())
	if err != nil {
		return nil, err
	}

	that.store(next)

	return next.Clone(), nil
}

func (that *memGame) DeleteByID(_ context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.lookup(id); !ok {
		return ErrGameNotFound
	}

	delete(that.games, id)

	return nil
}

func (that *memGame) lookup(id string) (memEntry, bool) {
	entry, ok := that.games[id]
	if !ok || that.expired(entry) {
		return memEntry{}, false
	}

	return entry, true
}

// store must be called with the write lock held. Expired games are swept here.
func (that *memGame) store(game *entity.Game) {
	for id, entry := range that.games {
		if that.expired(entry) {
			delete(that.games, id)
		}
	}

	entry := memEntry{game: game.Clone()}
	if that.ttl > 0 {
		entry.expiresAt = that.now().Add(that.ttl)
	}

	that.games[game.ID] = entry
}

func (that *memGame) expired(entry memEntry) bool {
	return !entry.expiresAt.IsZero() && !that.now().Before(entry.expiresAt)
}
