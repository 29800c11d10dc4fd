package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) sendEmails(ctx context.Context, eventID int) error {
	res, err := cli.dispatch.SendTicketEmails(ctx, eventID)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cli.out, res.Message())
	return nil
}
