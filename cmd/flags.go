package cmd

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/eslsoft/quizstats/internal/entity"
)

const (
	userKey  = "cli.user"
	emailKey = "cli.email"
	nameKey  = "cli.name"
)

var errUserRequired = errors.New("--user (or CLI_USER) is required")

func bindFlagToViper(key string, flag *pflag.Flag) {
	if flag == nil {
		return
	}
	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// cliIdentity reads the acting user from flags or environment.
func cliIdentity() (entity.Identity, error) {
	identity := entity.Identity{
		UserID:      strings.TrimSpace(viper.GetString(userKey)),
		Email:       strings.TrimSpace(viper.GetString(emailKey)),
		DisplayName: strings.TrimSpace(viper.GetString(nameKey)),
	}
	if identity.UserID == "" {
		return entity.Identity{}, errUserRequired
	}
	return identity, nil
}

// identityContext attaches the acting user to ctx so usecases treat the CLI
// like an authenticated caller.
func identityContext(ctx context.Context) (context.Context, entity.Identity, error) {
	identity, err := cliIdentity()
	if err != nil {
		return ctx, entity.Identity{}, err
	}
	return entity.ContextWithIdentity(ctx, identity), identity, nil
}
