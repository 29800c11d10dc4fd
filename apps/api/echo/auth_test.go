package echoapi

import (
	"net/http"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"

	"github.com/Mohammed01doitesky/bed/core/user"
)

func Test_authApi_login(t *testing.T) {
	app, env := setup()
	admin := env.CreateUser(t, "admin", "Str0ngPass!", user.RoleAdmin, true)
	env.CreateUser(t, "scanner", "Str0ngPass!", user.RoleUser, true)
	env.CreateUser(t, "gone", "Str0ngPass!", user.RoleManager, false)

	body := func(uname, pwd string) []byte {
		return marchallObj(t, user.Credentials{Username: uname, Password: pwd})
	}
	invalidCreds := marchallObj(t, httpErr{Error: "Invalid credentials"})

	tests := []httpTest{
		{
			name:     "missing fields",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     body("admin", ""),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "Username and password are required"}),
		},
		{
			name:     "unknown user",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     body("nobody", "Str0ngPass!"),
			wantCode: http.StatusUnauthorized,
			wantData: invalidCreds,
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     body("admin", "wrong"),
			wantCode: http.StatusUnauthorized,
			wantData: invalidCreds,
		},
		{
			name:     "deactivated user",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     body("gone", "Str0ngPass!"),
			wantCode: http.StatusUnauthorized,
			wantData: invalidCreds,
		},
		{
			name:     "no web access",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     body("scanner", "Str0ngPass!"),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: errNoWebAccess.Message.(string)}),
		},
	}
	runHTTPTests(t, app, tests)

	t.Run("success", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/auth/login", body(" ADMIN ", "Str0ngPass!"))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp LoginResponse
		unmarchallObj(t, rec.Body.Bytes(), &resp)
		assert.True(t, resp.Success)
		assert.Equal(t, admin.ID, resp.User.ID)
		assert.Equal(t, user.RoleAdmin, resp.User.Role)
		assert.NotNil(t, resp.User.LastLogin)

		claims := new(Claims)
		_, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(env.Conf.SecretKey), nil
		})
		assert.NoError(t, err)
		assert.Equal(t, "admin", claims.Username)
		assert.Equal(t, user.RoleAdmin, claims.Role)
	})
}

func Test_authApi_logout(t *testing.T) {
	app, _ := setup()
	runHTTPTests(t, app, []httpTest{
		{
			name:     "stateless",
			method:   http.MethodPost,
			path:     "/api/auth/logout",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, MessageResponse{Message: "Logged out successfully", Success: true}),
		},
	})
}

func Test_adminAccess(t *testing.T) {
	app, env := setup()
	admin := env.CreateUser(t, "admin", "Str0ngPass!", user.RoleAdmin, true)
	manager := env.CreateUser(t, "manager", "Str0ngPass!", user.RoleManager, true)
	scanner := env.CreateUser(t, "scanner", "Str0ngPass!", user.RoleUser, true)

	runHTTPTests(t, app, []httpTest{
		{
			name:     "missing token",
			method:   http.MethodGet,
			path:     "/api/admin/dashboard",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "scanner token",
			method:   http.MethodGet,
			path:     "/api/admin/dashboard",
			token:    getToken(t, scanner, env.Conf),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: errNoWebAccess.Message.(string)}),
		},
		{
			name:     "manager on dashboard",
			method:   http.MethodGet,
			path:     "/api/admin/dashboard",
			token:    getToken(t, manager, env.Conf),
			wantCode: http.StatusOK,
		},
		{
			name:     "manager on users",
			method:   http.MethodGet,
			path:     "/api/admin/users",
			token:    getToken(t, manager, env.Conf),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "admin on users",
			method:   http.MethodGet,
			path:     "/api/admin/users",
			token:    getToken(t, admin, env.Conf),
			wantCode: http.StatusOK,
		},
	})
}
