package inmemdb

import (
	"context"
	"strings"
	"time"

	"github.com/Mohammed01doitesky/bed/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) UsernameExists(_ context.Context, username string, excludedIDs ...int) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	excluded := make(map[int]bool, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = true
	}
	for _, usr := range repo.db.users {
		if usr.Username == username && !excluded[usr.ID] {
			return true, nil
		}
	}
	return false, nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr.ID = repo.db.nextID("users")
	u := usr
	repo.db.users[usr.ID] = &u
	return usr, nil
}

func (repo *userRepository) QueryUsers(context.Context) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, id := range sortedIDs(repo.db.users) {
		users = append(users, *repo.db.users[id])
	}
	return users, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id int) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsernameOrEmail(_ context.Context, uname string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, id := range sortedIDs(repo.db.users) {
		usr := repo.db.users[id]
		if strings.ToLower(usr.Username) == uname || strings.ToLower(usr.Email) == uname {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	u := usr
	repo.db.users[usr.ID] = &u
	return usr, nil
}

func (repo *userRepository) DeleteUser(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(repo.db.users, id)
	for kid, key := range repo.db.apiKeys {
		if key.UserID == id {
			delete(repo.db.apiKeys, kid)
		}
	}
	return nil
}

func (repo *userRepository) CreateAPIKey(_ context.Context, key user.APIKey) (user.APIKey, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key.ID = repo.db.nextID("api_keys")
	k := key
	repo.db.apiKeys[key.ID] = &k
	return key, nil
}

func (repo *userRepository) GetActiveAPIKey(_ context.Context, userID int, keyName string) (user.APIKey, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var found *user.APIKey
	for _, id := range sortedIDs(repo.db.apiKeys) {
		key := repo.db.apiKeys[id]
		if key.UserID == userID && key.KeyName == keyName && key.IsActive {
			found = key
		}
	}
	if found == nil {
		return user.APIKey{}, user.ErrAPIKeyNotFound
	}
	return *found, nil
}

func (repo *userRepository) DeleteAPIKeyByID(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.apiKeys, id)
	return nil
}

func (repo *userRepository) DeleteAPIKey(_ context.Context, key, keyName string) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var deleted bool
	for id, k := range repo.db.apiKeys {
		if k.Key == key && k.KeyName == keyName {
			delete(repo.db.apiKeys, id)
			deleted = true
		}
	}
	return deleted, nil
}

func (repo *userRepository) GetUserByAPIKey(_ context.Context, key string, now time.Time) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, k := range repo.db.apiKeys {
		if k.Key != key || !k.IsActive || k.IsExpired(now) {
			continue
		}
		if usr, ok := repo.db.users[k.UserID]; ok {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}
