// Command issuetoken prints an access token of the configured TOKEN_TYPE for a customer id, for local use
// against the ledger API.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/tokenpkg"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "./configs", "directory containing app.env")
		userID     = pflag.StringP("user", "u", "", "customer id to put into the token")
		duration   = pflag.DurationP("duration", "d", 0, "token lifetime, defaults to ACCESS_TOKEN_DURATION")
	)

	pflag.Parse()

	if *userID == "" {
		pflag.Usage()
		os.Exit(2)
	}

	config, err := configpkg.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	maker, err := tokenpkg.NewMaker(config.TokenType, config.TokenSymmetricKey)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot create token maker")
	}

	if *duration == 0 {
		*duration = config.AccessTokenDuration
	}

	token, payload, err := maker.CreateToken(*userID, *duration)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot create token")
	}

	fmt.Println(token)
	log.Info().Str("user_id", payload.UserID).Time("expires_at", payload.ExpiredAt.Truncate(time.Second)).Send()
}
