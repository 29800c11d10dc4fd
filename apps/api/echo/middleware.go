package echoapi

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Mohammed01doitesky/bed/core"
	"github.com/Mohammed01doitesky/bed/core/user"
)

const apiKeyHeader = "X-Api-Key"

// webAccessMiddleware lets through the users whose role may use the admin dashboard.
func webAccessMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if user.RolePermissions(claims.Role).CanAccessWeb {
				return next(ctx)
			}
			return errNoWebAccess
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.Role == user.RoleAdmin {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// apiKeyMiddleware authenticates ticket scanners. The key is read from the JSON body field api_key,
// then the X-Api-Key header, then an Authorization Bearer header.
func apiKeyMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			key, err := requestAPIKey(ctx)
			if err != nil {
				return errors.Wrap(err, "reading api key")
			}
			if key == "" {
				return errAPIKeyRequired
			}

			usr, err := svc.GetByAPIKey(ctx.Request().Context(), key)
			if err != nil {
				return errors.Wrap(err, "finding user by api key")
			}
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

func requestAPIKey(ctx echo.Context) (string, error) {
	req := ctx.Request()
	if req.Body != nil {
		body, err := ioutil.ReadAll(req.Body)
		if err != nil {
			return "", err
		}
		req.Body = ioutil.NopCloser(bytes.NewReader(body))

		var data struct {
			APIKey string `json:"api_key"`
		}
		if len(body) > 0 && json.Unmarshal(body, &data) == nil {
			if key := core.CleanString(data.APIKey); key != "" {
				return key, nil
			}
		}
	}

	if key := core.CleanString(req.Header.Get(apiKeyHeader)); key != "" {
		return key, nil
	}
	if auth := req.Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		return core.CleanString(strings.TrimPrefix(auth, "Bearer ")), nil
	}
	return "", nil
}
