package repositories

import (
	"testing"
	"time"

	errs "convo-core/errors"

	"github.com/stretchr/testify/require"
)

func TestUserRepository_Lifecycle(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	clock := newStubClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	repo := NewUserRepository(db, clock)

	user, err := repo.CreateUser("Alice")
	req.NoError(err)
	req.NotEmpty(user.ID)
	req.Equal("Alice", user.DisplayName)
	req.Equal(clock.Now(), user.CreatedAt)

	ok, err := repo.Exists(user.ID)
	req.NoError(err)
	req.True(ok)

	fetched, err := repo.Get(user.ID)
	req.NoError(err)
	req.Equal(user, fetched)

	ok, err = repo.Exists("ghost-user")
	req.NoError(err)
	req.False(ok)

	_, err = repo.Get("ghost-user")
	req.ErrorIs(err, errs.ErrNotFound)
}
