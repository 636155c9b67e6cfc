package main

import (
	"context"

	"github.com/trezcool/studyspace/core/account"
)

// resetPassword sets a new password on the account, subject to the password policy.
func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	acc, err := cli.accounts.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	_, err = cli.accounts.SetPassword(ctx, acc, account.NewPassword{Password: pwd, PasswordConfirm: pwd})
	return err
}
