package user

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Mohammed01doitesky/bed/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrUsernameExists     = errors.New("Username already exists")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrAPIKeyNotFound     = errors.New("api key not found")
	ErrAPIKeyExists       = errors.New("Api Key Already Exist")
	ErrInvalidAPIKey      = errors.New("Invalid or expired API key")
)

type (
	Repository interface {
		UsernameExists(ctx context.Context, username string, excludedIDs ...int) (bool, error)
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryUsers(ctx context.Context) ([]User, error)
		GetUserByID(ctx context.Context, id int) (User, error)
		// GetUserByUsernameOrEmail matches either column against uname.
		GetUserByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUser(ctx context.Context, id int) error

		CreateAPIKey(ctx context.Context, key APIKey) (APIKey, error)
		GetActiveAPIKey(ctx context.Context, userID int, keyName string) (APIKey, error)
		DeleteAPIKeyByID(ctx context.Context, id int) error
		// DeleteAPIKey removes key when it was issued under keyName and reports whether a row was deleted.
		DeleteAPIKey(ctx context.Context, key, keyName string) (bool, error)
		// GetUserByAPIKey returns the owner of an active key that has not expired at now.
		GetUserByAPIKey(ctx context.Context, key string, now time.Time) (User, error)
	}

	Service interface {
		CheckUniqueness(ctx context.Context, uname string, exclUsers ...User) error
		Create(ctx context.Context, nu NewUser) (User, error)
		Query(ctx context.Context) ([]User, error)
		GetByID(ctx context.Context, id int) (User, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		Authenticate(ctx context.Context, creds Credentials) (User, error)
		Update(ctx context.Context, id int, uu UpdateUser) (User, error)
		Delete(ctx context.Context, id int) error

		IssueAPIKey(ctx context.Context, usr User) (APIKey, error)
		RevokeAPIKey(ctx context.Context, key, username string) error
		GetByAPIKey(ctx context.Context, key string) (User, error)
	}

	service struct {
		repo      Repository
		apiKeyTTL time.Duration
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, conf *core.Config) Service {
	return &service{
		repo:      repo,
		apiKeyTTL: conf.Ticket.APIKeyTTL,
	}
}

func (svc *service) CheckUniqueness(ctx context.Context, uname string, exclUsers ...User) error {
	ids := make([]int, 0, len(exclUsers))
	for _, u := range exclUsers {
		ids = append(ids, u.ID)
	}
	exists, err := svc.repo.UsernameExists(ctx, uname, ids...)
	if err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	if exists {
		return core.NewValidationError(ErrUsernameExists, core.FieldError{Field: "username", Error: ErrUsernameExists.Error()})
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := core.NowFunc()
	usr := User{
		Username:  nu.Username,
		Email:     nu.Email,
		Role:      nu.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *service) Query(ctx context.Context) ([]User, error) {
	return svc.repo.QueryUsers(ctx)
}

func (svc *service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

// Authenticate checks the credentials and records the login time.
func (svc *service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	creds.Clean()
	usr, err := svc.GetByUsernameOrEmail(ctx, creds.Username)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(creds.Password); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}

	now := core.NowFunc()
	usr.LastLogin = &now
	usr, err = svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "setting last login")
	}
	return usr, nil
}

func (svc *service) Update(ctx context.Context, id int, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.Username = uu.Username
	usr.Email = uu.Email
	usr.Role = uu.Role
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	usr.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteUser(ctx, id)
}

// IssueAPIKey creates a scanner key for usr. An unexpired key blocks a new one; an expired key is replaced.
func (svc *service) IssueAPIKey(ctx context.Context, usr User) (APIKey, error) {
	keyName := APIKeyName(usr.Username)
	now := core.NowFunc()

	existing, err := svc.repo.GetActiveAPIKey(ctx, usr.ID, keyName)
	switch errors.Cause(err) {
	case nil:
		if !existing.IsExpired(now) {
			return APIKey{}, ErrAPIKeyExists
		}
		if err = svc.repo.DeleteAPIKeyByID(ctx, existing.ID); err != nil {
			return APIKey{}, errors.Wrap(err, "deleting expired api key")
		}
	case ErrAPIKeyNotFound:
	default:
		return APIKey{}, errors.Wrap(err, "finding active api key")
	}

	expiresAt := now.Add(svc.apiKeyTTL)
	key := APIKey{
		UserID:    usr.ID,
		KeyName:   keyName,
		Key:       strings.ReplaceAll(uuid.New().String(), "-", ""),
		ExpiresAt: &expiresAt,
		IsActive:  true,
		CreatedAt: now,
	}
	return svc.repo.CreateAPIKey(ctx, key)
}

func (svc *service) RevokeAPIKey(ctx context.Context, key, username string) error {
	deleted, err := svc.repo.DeleteAPIKey(ctx, key, APIKeyName(core.CleanString(username, true /* lower */)))
	if err != nil {
		return errors.Wrap(err, "deleting api key")
	}
	if !deleted {
		return ErrAPIKeyNotFound
	}
	return nil
}

func (svc *service) GetByAPIKey(ctx context.Context, key string) (User, error) {
	usr, err := svc.repo.GetUserByAPIKey(ctx, core.CleanString(key), core.NowFunc())
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidAPIKey
		}
		return User{}, errors.Wrap(err, "finding user by api key")
	}
	if !usr.IsActive {
		return User{}, ErrInvalidAPIKey
	}
	return usr, nil
}
