package main

import (
	"context"

	"github.com/Mohammed01doitesky/bed/core/user"
)

func (cli *commandLine) resetPassword(ctx context.Context, uname, pwd string) error {
	usr, err := cli.users.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	uu := user.UpdateUser{Password: pwd}
	if err = uu.Validate(ctx, usr, cli.validate, cli.users); err != nil {
		return err
	}
	if _, err = cli.users.Update(ctx, usr.ID, uu); err != nil {
		return err
	}
	return nil
}
