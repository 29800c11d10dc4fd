package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/Mohammed01doitesky/bed/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleUser    = "user" // ticket scanners
)

// Permissions
const (
	PermWeb = "web"
	PermAPI = "api"
)

var (
	AllRoles = []string{RoleAdmin, RoleManager, RoleUser}

	rolePermissions = map[string]Permissions{
		RoleAdmin:   {CanAccessWeb: true, CanAccessAPI: true},
		RoleManager: {CanAccessWeb: true, CanAccessAPI: true},
		RoleUser:    {CanAccessWeb: false, CanAccessAPI: true},
	}

	Roles = []Role{
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Manager", Value: RoleManager},
		{Name: "User", Value: RoleUser},
	}
)

type Permissions struct {
	CanAccessWeb bool `json:"can_access_web"`
	CanAccessAPI bool `json:"can_access_api"`
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func RolePermissions(role string) Permissions {
	return rolePermissions[role]
}

type User struct {
	ID           int        `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"is_active"`
	PasswordHash []byte     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"` // UTC
	UpdatedAt    time.Time  `json:"updated_at"` // UTC
	LastLogin    *time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// HasPermission reports whether the user's role grants perm (PermWeb | PermAPI).
func (u *User) HasPermission(perm string) bool {
	p := RolePermissions(u.Role)
	switch perm {
	case PermWeb:
		return p.CanAccessWeb
	case PermAPI:
		return p.CanAccessAPI
	}
	return false
}

// APIKey is the credential of a ticket scanner session.
type APIKey struct {
	ID        int        `json:"id"`
	UserID    int        `json:"user_id"`
	KeyName   string     `json:"key_name"`
	Key       string     `json:"api_key"`
	ExpiresAt *time.Time `json:"expires_at"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
}

func (k APIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

// APIKeyName is the name under which a user's scanner key is stored.
func APIKeyName(username string) string {
	return "Bedayia ApiKey For " + username
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Username string `json:"username" validate:"required,min=3,alphanum_"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=admin manager user"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	if nu.Role == "" {
		nu.Role = RoleAdmin
	}

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Username)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Username string `json:"username" validate:"omitempty,min=3,alphanum_"`
	Email    string `json:"email" validate:"omitempty,email"`
	Role     string `json:"role" validate:"omitempty,oneof=admin manager user"`
	IsActive *bool  `json:"is_active"`
	Password string `json:"password" validate:"omitempty"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc Service) error {
	if uname := core.CleanString(uu.Username, true /* lower */); uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}
	if role := core.CleanString(uu.Role, true /* lower */); role != "" {
		uu.Role = role
	} else {
		uu.Role = origUsr.Role
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, uu.Username, origUsr)
}

// Credentials are used by both the admin login and the scanner login.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (c *Credentials) Clean() {
	c.Username = core.CleanString(c.Username, true /* lower */)
}
