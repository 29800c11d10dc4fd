package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Mohammed01doitesky/bed/core/user"
)

// addUser updates or creates a user.User. An existing user is re-activated.
func (cli *commandLine) addUser(ctx context.Context, uname, email, role, pwd string) (user.User, error) {
	usr, err := cli.users.GetByUsernameOrEmail(ctx, uname)
	switch errors.Cause(err) {
	case nil:
		isActive := true
		uu := user.UpdateUser{Email: email, Role: role, IsActive: &isActive, Password: pwd}
		if err = uu.Validate(ctx, usr, cli.validate, cli.users); err != nil {
			return user.User{}, err
		}
		return cli.users.Update(ctx, usr.ID, uu)

	case user.ErrNotFound:
		nu := user.NewUser{Username: uname, Email: email, Password: pwd, Role: role}
		if err = nu.Validate(ctx, cli.validate, cli.users); err != nil {
			return user.User{}, err
		}
		return cli.users.Create(ctx, nu)

	default:
		return user.User{}, errors.Wrap(err, "finding user")
	}
}
