package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Mohammed01doitesky/bed/core/user"
)

const userColumns = `id, username, email, password_hash, role, is_active, created_at, updated_at, last_login`

type userRow struct {
	ID           int       `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash []byte    `db:"password_hash"`
	Role         string    `db:"role"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

func (r userRow) unboil() user.User {
	return user.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		Role:         r.Role,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Ptr(),
	}
}

type apiKeyRow struct {
	ID        int       `db:"id"`
	UserID    int       `db:"user_id"`
	KeyName   string    `db:"key_name"`
	Key       string    `db:"api_key"`
	ExpiresAt null.Time `db:"expires_at"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
}

func (r apiKeyRow) unboil() user.APIKey {
	return user.APIKey{
		ID:        r.ID,
		UserID:    r.UserID,
		KeyName:   r.KeyName,
		Key:       r.Key,
		ExpiresAt: r.ExpiresAt.Ptr(),
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) UsernameExists(ctx context.Context, username string, excludedIDs ...int) (bool, error) {
	q, args := `SELECT EXISTS (SELECT 1 FROM users WHERE username = ?)`, []interface{}{username}
	if len(excludedIDs) > 0 {
		var err error
		q, args, err = sqlx.In(`SELECT EXISTS (SELECT 1 FROM users WHERE username = ? AND id NOT IN (?))`, username, excludedIDs)
		if err != nil {
			return false, errors.Wrap(err, "building username query")
		}
	}

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(q), args...); err != nil {
		return false, errors.Wrap(err, "checking username")
	}
	return exists, nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	const q = `
		INSERT INTO users (username, email, password_hash, role, is_active, created_at, updated_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := repo.db.QueryRowxContext(ctx, q,
		usr.Username, usr.Email, usr.PasswordHash, usr.Role, usr.IsActive,
		usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(), nullTime(usr.LastLogin),
	).Scan(&usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM users ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.unboil())
	}
	return users, nil
}

func (repo *userRepository) getUser(ctx context.Context, where string, arg interface{}) (user.User, error) {
	var r userRow
	if err := repo.db.GetContext(ctx, &r, `SELECT `+userColumns+` FROM users WHERE `+where, arg); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return r.unboil(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	return repo.getUser(ctx, `id = $1`, id)
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, uname string) (user.User, error) {
	return repo.getUser(ctx, `LOWER(username) = $1 OR LOWER(email) = $1 ORDER BY id LIMIT 1`, uname)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	const q = `
		UPDATE users
		SET username = $2, email = $3, password_hash = $4, role = $5, is_active = $6, updated_at = $7, last_login = $8
		WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q,
		usr.ID, usr.Username, usr.Email, usr.PasswordHash, usr.Role, usr.IsActive,
		usr.UpdatedAt.UTC(), nullTime(usr.LastLogin),
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if err = checkAffected(res, user.ErrNotFound); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return checkAffected(res, user.ErrNotFound)
}

func (repo *userRepository) CreateAPIKey(ctx context.Context, key user.APIKey) (user.APIKey, error) {
	const q = `
		INSERT INTO api_keys (user_id, key_name, api_key, expires_at, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := repo.db.QueryRowxContext(ctx, q,
		key.UserID, key.KeyName, key.Key, nullTime(key.ExpiresAt), key.IsActive, key.CreatedAt.UTC(),
	).Scan(&key.ID)
	if err != nil {
		return user.APIKey{}, errors.Wrap(err, "inserting api key")
	}
	return key, nil
}

func (repo *userRepository) GetActiveAPIKey(ctx context.Context, userID int, keyName string) (user.APIKey, error) {
	const q = `
		SELECT id, user_id, key_name, api_key, expires_at, is_active, created_at
		FROM api_keys
		WHERE user_id = $1 AND key_name = $2 AND is_active
		ORDER BY created_at DESC
		LIMIT 1`
	var r apiKeyRow
	if err := repo.db.GetContext(ctx, &r, q, userID, keyName); err != nil {
		return user.APIKey{}, trapNoRowsErr(err, user.ErrAPIKeyNotFound, "finding api key")
	}
	return r.unboil(), nil
}

func (repo *userRepository) DeleteAPIKeyByID(ctx context.Context, id int) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting api key")
	}
	return nil
}

func (repo *userRepository) DeleteAPIKey(ctx context.Context, key, keyName string) (bool, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM api_keys WHERE api_key = $1 AND key_name = $2`, key, keyName)
	if err != nil {
		return false, errors.Wrap(err, "deleting api key")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "reading affected rows")
	}
	return n > 0, nil
}

func (repo *userRepository) GetUserByAPIKey(ctx context.Context, key string, now time.Time) (user.User, error) {
	const q = `
		SELECT u.id, u.username, u.email, u.password_hash, u.role, u.is_active, u.created_at, u.updated_at, u.last_login
		FROM api_keys k
		JOIN users u ON u.id = k.user_id
		WHERE k.api_key = $1 AND k.is_active AND (k.expires_at IS NULL OR k.expires_at > $2)`
	var r userRow
	if err := repo.db.GetContext(ctx, &r, q, key, now.UTC()); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user by api key")
	}
	return r.unboil(), nil
}
