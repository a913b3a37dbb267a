package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/auth-web/internal/core/domain"
)

func TestMemoryUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	base := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, &domain.User{ID: "2", Identifier: "bob", CreatedAt: base.Add(time.Second)}))
	require.NoError(t, repo.Create(ctx, &domain.User{ID: "1", Identifier: "alice", CreatedAt: base}))

	err := repo.Create(ctx, &domain.User{ID: "3", Identifier: "alice", CreatedAt: base})
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)

	user, err := repo.GetByIdentifier(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "1", user.ID)

	missing, err := repo.GetByIdentifier(ctx, "carol")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Identifier)
	assert.Equal(t, "bob", users[1].Identifier)
}

func TestMemoryUserRepository_ConcurrentDuplicateSignups(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	const workers = 32
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		created    int
		duplicates int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Create(ctx, &domain.User{Identifier: "alice"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
			} else if assert.ErrorIs(t, err, domain.ErrDuplicateKey) {
				duplicates++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, duplicates)
}

func TestMemorySessionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepository()
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, &domain.Session{TokenHash: "h1", UserIdentifier: "alice", CreatedAt: now}))
	assert.ErrorIs(t, repo.Create(ctx, &domain.Session{TokenHash: "h1"}), domain.ErrDuplicateKey)

	session, err := repo.GetByTokenHash(ctx, "h1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "alice", session.UserIdentifier)
	assert.Nil(t, session.InvalidatedAt)

	first := now.Add(time.Minute)
	require.NoError(t, repo.Invalidate(ctx, "h1", first))
	require.NoError(t, repo.Invalidate(ctx, "h1", first.Add(time.Hour)))
	require.NoError(t, repo.Invalidate(ctx, "unknown", first))

	session, err = repo.GetByTokenHash(ctx, "h1")
	require.NoError(t, err)
	require.NotNil(t, session.InvalidatedAt)
	assert.Equal(t, first, *session.InvalidatedAt)

	assert.ErrorIs(t, repo.Create(ctx, &domain.Session{TokenHash: "h1"}), domain.ErrDuplicateKey,
		"an invalidated token hash is never reusable")
	assert.Equal(t, 1, repo.Len())

	missing, err := repo.GetByTokenHash(ctx, "h2")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}
