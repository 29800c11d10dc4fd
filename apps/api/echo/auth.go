package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/Mohammed01doitesky/bed/core"
	"github.com/Mohammed01doitesky/bed/core/user"
)

const (
	contextTokenKey = "userToken"
	contextUserKey  = "user"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

func GetUserClaims(usr user.User, conf *core.Config) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   strconv.Itoa(usr.ID),
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: usr.Username,
		Role:     usr.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims, conf *core.Config) (string, error) {
	jwtConf := newJWTConfig(conf)
	method := jwt.GetSigningMethod(jwtConf.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(jwtConf.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUserID(ctx echo.Context) (int, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return 0, err
	}
	id, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return 0, errUnauthorized
	}
	return id, nil
}

type authApi struct {
	conf     *core.Config
	svc      user.Service
	validate *validator.Validate
}

func registerAuthAPI(g *echo.Group, conf *core.Config, svc user.Service, validate *validator.Validate) {
	api := authApi{
		conf:     conf,
		svc:      svc,
		validate: validate,
	}

	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.POST("/logout", api.logout)
}

func (api *authApi) login(ctx echo.Context) error {
	var data user.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}
	data.Clean()
	if data.Username == "" || data.Password == "" {
		return core.NewValidationError(errors.New("Username and password are required"))
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	if !usr.HasPermission(user.PermWeb) {
		return errNoWebAccess
	}

	token, err := GenerateToken(GetUserClaims(usr, api.conf), api.conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{User: usr, Token: token, Success: true})
}

// logout is stateless: the client drops its token.
func (api *authApi) logout(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully", Success: true})
}

type (
	LoginResponse struct {
		User    user.User `json:"user"`
		Token   string    `json:"token"`
		Success bool      `json:"success"`
	}

	MessageResponse struct {
		Message string `json:"message"`
		Success bool   `json:"success"`
	}
)
