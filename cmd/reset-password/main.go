package main

import (
	"os"

	"go-dispatch-ws/internal/model"
	"go-dispatch-ws/internal/repository"
	"go-dispatch-ws/pkg/config"
	"go-dispatch-ws/pkg/database"
	"go-dispatch-ws/pkg/logger"

	"github.com/docopt/docopt-go"
	"github.com/google/uuid"
)

const usage = `Reset an account password and revoke its sessions.

Usage:
    reset-password [--email=<email>] [--password=<password>]

Options:
    -h --help               Show this screen.
    --email=<email>         Account to reset [default: admin@example.com].
    --password=<password>   New password [default: admin123].`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], "")
	if err != nil {
		panic(err)
	}
	email, _ := opts.String("--email")
	newPassword, _ := opts.String("--password")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{}).Fatal().Err(err).Msg("load config")
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	// 2. Setup Database
	db, err := database.ConnectDB(cfg.DB, log, false)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	accounts := repository.NewAccountRepo(db)

	// 3. Find account
	account, err := accounts.FindByEmail(email)
	if err != nil {
		log.Fatal().Err(err).Str("email", email).Msg("account not found")
	}

	// 4. Hash new password
	var tmp model.Account
	if err := tmp.SetPassword(newPassword); err != nil {
		log.Fatal().Err(err).Msg("hash password")
	}

	// 5. Update and revoke existing sessions
	if err := accounts.UpdatePassword(account.ID, tmp.Password); err != nil {
		log.Fatal().Err(err).Msg("update password")
	}
	if err := accounts.UpdateTokenVersion(account.ID, uuid.NewString()); err != nil {
		log.Fatal().Err(err).Msg("revoke sessions")
	}

	log.Info().Str("email", email).Msg("password reset, existing sessions revoked")
}
