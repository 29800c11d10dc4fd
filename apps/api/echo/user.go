package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Mohammed01doitesky/bed/core/user"
)

type userApi struct {
	svc      user.Service
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, svc user.Service, validate *validator.Validate) {
	api := userApi{
		svc:      svc,
		validate: validate,
	}

	ug := g.Group("/users", adminMiddleware())
	ug.GET("", api.query)
	ug.POST("", api.create)
	ug.GET("/roles", api.queryRoles)

	dg := ug.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

// Handlers

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, UserResponse{User: usr, Success: true})
}

func (api *userApi) query(ctx echo.Context) error {
	users, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, UsersResponse{Users: users, Success: true})
}

func (api *userApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	return ctx.JSON(http.StatusOK, UserResponse{User: usr, Success: true})
}

func (api *userApi) update(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err = data.Validate(ctx.Request().Context(), usr, api.validate, api.svc); err != nil {
		return err
	}

	// an admin cannot lock themselves out
	ctxUsrID, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	if usr.ID == ctxUsrID && (data.Role != user.RoleAdmin || (data.IsActive != nil && !*data.IsActive)) {
		return errHttpForbidden
	}

	usr, err = api.svc.Update(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, UserResponse{User: usr, Success: true})
}

func (api *userApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	ctxUsrID, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	if id == ctxUsrID {
		return errHttpForbidden
	}

	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "User deleted successfully", Success: true})
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

type (
	UsersResponse struct {
		Users   []user.User `json:"users"`
		Success bool        `json:"success"`
	}

	UserResponse struct {
		User    user.User `json:"user"`
		Success bool      `json:"success"`
	}
)
