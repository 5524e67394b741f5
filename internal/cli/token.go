package cli

import (
	"fmt"
	"time"

	"github.com/hyson0807/isolog/internal/security"
)

type TokenCmd struct {
	TTL     time.Duration `help:"Token lifetime." default:"720h"`
	Subject string        `help:"Token subject." default:"host"`
}

func (cmd *TokenCmd) Run(appCtx *Context) error {
	secret, err := resolveAPISecret(appCtx)
	if err != nil {
		return err
	}

	token, err := security.IssueAPIToken([]byte(secret), cmd.Subject, cmd.TTL, time.Now())
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	fmt.Fprintln(appCtx.Out, token)
	return nil
}
