package echoapi

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohammed01doitesky/bed/core/user"
)

func userPath(id int) string {
	return "/api/admin/users/" + strconv.Itoa(id)
}

func Test_userApi_query(t *testing.T) {
	app, env := setup()
	admin := env.CreateUser(t, "admin", "Str0ngPass!", user.RoleAdmin, true)
	scanner := env.CreateUser(t, "scanner", "Str0ngPass!", user.RoleUser, false)
	token := getToken(t, admin, env.Conf)

	runHTTPTests(t, app, []httpTest{
		{
			name:     "all users",
			method:   http.MethodGet,
			path:     "/api/admin/users",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, UsersResponse{Users: []user.User{admin, scanner}, Success: true}),
		},
		{
			name:     "retrieve",
			method:   http.MethodGet,
			path:     userPath(scanner.ID),
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, UserResponse{User: scanner, Success: true}),
		},
		{
			name:     "retrieve unknown",
			method:   http.MethodGet,
			path:     userPath(999),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: user.ErrNotFound.Error()}),
		},
		{
			name:     "roles",
			method:   http.MethodGet,
			path:     "/api/admin/users/roles",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, user.Roles),
		},
	})
}

func Test_userApi_create(t *testing.T) {
	app, env := setup()
	token := getToken(t, env.CreateUser(t, "admin", "Str0ngPass!", user.RoleAdmin, true), env.Conf)

	newUser := func(uname, email, pwd, role string) []byte {
		return marchallObj(t, user.NewUser{Username: uname, Email: email, Password: pwd, Role: role})
	}

	runHTTPTests(t, app, []httpTest{
		{
			name:     "username taken",
			method:   http.MethodPost,
			path:     "/api/admin/users",
			body:     newUser("ADMIN", "other@bed.test", "Str0ngPass!", ""),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username":"Username already exists"}`),
		},
		{
			name:     "invalid username",
			method:   http.MethodPost,
			path:     "/api/admin/users",
			body:     newUser("no spaces", "x@bed.test", "Str0ngPass!", ""),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username":"only alphanumeric characters and underscores are allowed"}`),
		},
		{
			name:     "invalid email",
			method:   http.MethodPost,
			path:     "/api/admin/users",
			body:     newUser("gate1", "gate1", "Str0ngPass!", user.RoleUser),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"invalid email format"}`),
		},
		{
			name:     "invalid role",
			method:   http.MethodPost,
			path:     "/api/admin/users",
			body:     newUser("gate1", "gate1@bed.test", "Str0ngPass!", "root"),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"role":"invalid role"}`),
		},
		{
			name:     "short password",
			method:   http.MethodPost,
			path:     "/api/admin/users",
			body:     newUser("gate1", "gate1@bed.test", "Ab1!", user.RoleUser),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"password":"password must contain at least 8 characters"}`),
		},
		{
			name:     "numeric password",
			method:   http.MethodPost,
			path:     "/api/admin/users",
			body:     newUser("gate1", "gate1@bed.test", "1234567890", user.RoleUser),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"password":"password cannot be entirely numeric"}`),
		},
		{
			name:     "password like username",
			method:   http.MethodPost,
			path:     "/api/admin/users",
			body:     newUser("johnny", "gate1@bed.test", "Johnny2024", user.RoleUser),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"password":"password cannot be similar to the username or email"}`),
		},
	})

	t.Run("created", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/admin/users", token,
			newUser(" Gate_1 ", "Gate1@Bed.test", "Sc4nner!Pass", user.RoleUser))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp UserResponse
		unmarchallObj(t, rec.Body.Bytes(), &resp)
		assert.Equal(t, "gate_1", resp.User.Username)
		assert.Equal(t, "gate1@bed.test", resp.User.Email)
		assert.Equal(t, user.RoleUser, resp.User.Role)
		assert.True(t, resp.User.IsActive)

		usr, err := env.UserSvc.Authenticate(context.Background(), user.Credentials{Username: "gate_1", Password: "Sc4nner!Pass"})
		require.NoError(t, err)
		assert.Equal(t, resp.User.ID, usr.ID)
	})

	t.Run("role defaults to admin", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/admin/users", token,
			newUser("boss", "boss@bed.test", "Sc4nner!Pass", ""))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp UserResponse
		unmarchallObj(t, rec.Body.Bytes(), &resp)
		assert.Equal(t, user.RoleAdmin, resp.User.Role)
	})
}

func Test_userApi_update(t *testing.T) {
	app, env := setup()
	admin := env.CreateUser(t, "admin", "Str0ngPass!", user.RoleAdmin, true)
	manager := env.CreateUser(t, "manager", "Str0ngPass!", user.RoleManager, true)
	token := getToken(t, admin, env.Conf)

	runHTTPTests(t, app, []httpTest{
		{
			name:     "self demotion",
			method:   http.MethodPut,
			path:     userPath(admin.ID),
			body:     []byte(`{"role":"manager"}`),
			token:    token,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "self deactivation",
			method:   http.MethodPut,
			path:     userPath(admin.ID),
			body:     []byte(`{"is_active":false}`),
			token:    token,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "username taken",
			method:   http.MethodPut,
			path:     userPath(manager.ID),
			body:     []byte(`{"username":"admin"}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username":"Username already exists"}`),
		},
		{
			name:     "unknown user",
			method:   http.MethodPut,
			path:     userPath(999),
			body:     []byte(`{"role":"user"}`),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: user.ErrNotFound.Error()}),
		},
	})

	t.Run("self update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, userPath(admin.ID), token, []byte(`{"email":"root@bed.test"}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp UserResponse
		unmarchallObj(t, rec.Body.Bytes(), &resp)
		assert.Equal(t, "root@bed.test", resp.User.Email)
		assert.Equal(t, user.RoleAdmin, resp.User.Role)
	})

	t.Run("demote and deactivate another user", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, userPath(manager.ID), token,
			[]byte(`{"role":"user","is_active":false,"password":"N3w!Secret"}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp UserResponse
		unmarchallObj(t, rec.Body.Bytes(), &resp)
		assert.Equal(t, "manager", resp.User.Username)
		assert.Equal(t, user.RoleUser, resp.User.Role)
		assert.False(t, resp.User.IsActive)

		_, err := env.UserSvc.Authenticate(context.Background(), user.Credentials{Username: "manager", Password: "N3w!Secret"})
		assert.Equal(t, user.ErrAccountDeactivated, err)
	})
}

func Test_userApi_destroy(t *testing.T) {
	app, env := setup()
	admin := env.CreateUser(t, "admin", "Str0ngPass!", user.RoleAdmin, true)
	other := env.CreateUser(t, "other", "Str0ngPass!", user.RoleManager, true)
	token := getToken(t, admin, env.Conf)

	runHTTPTests(t, app, []httpTest{
		{
			name:     "self deletion",
			method:   http.MethodDelete,
			path:     userPath(admin.ID),
			token:    token,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "deleted",
			method:   http.MethodDelete,
			path:     userPath(other.ID),
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, MessageResponse{Message: "User deleted successfully", Success: true}),
		},
		{
			name:     "already deleted",
			method:   http.MethodDelete,
			path:     userPath(other.ID),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: user.ErrNotFound.Error()}),
		},
	})
}
