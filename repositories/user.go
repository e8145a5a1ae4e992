//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_identity_store.go -package=mocks
package repositories

import (
	"errors"
	"fmt"

	"convo-core/contract"
	"convo-core/domain"
	errs "convo-core/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// IIdentityStore is the narrow identity surface the core consumes.
// CreateUser exists for binaries and tests; the engine itself only
// resolves ids.
type IIdentityStore interface {
	CreateUser(displayName string) (domain.User, error)
	Exists(userID string) (bool, error)
	Get(userID string) (domain.User, error)
}

type UserRepository struct {
	db    *badger.DB
	clock contract.Clock
}

func NewUserRepository(db *badger.DB, clock contract.Clock) *UserRepository {
	return &UserRepository{db: db, clock: clock}
}

func (u *UserRepository) CreateUser(displayName string) (domain.User, error) {
	user := domain.User{
		ID:          uuid.New().String(),
		DisplayName: displayName,
		CreatedAt:   u.clock.Now(),
	}
	data, err := encodeUser(user)
	if err != nil {
		return domain.User{}, fmt.Errorf("marshal failed: %w", err)
	}
	err = update(u.db, func(txn *badger.Txn) error {
		return txn.Set(userKey(user.ID), data)
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (u *UserRepository) Exists(userID string) (bool, error) {
	err := u.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(userKey(userID))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (u *UserRepository) Get(userID string) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			user, err = DecodeUser(val)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, fmt.Errorf("%w: user %s", errs.ErrNotFound, userID)
	}
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}
