// Command promote grants admin rights to a user who has signed in at least
// once.
//
//	promote --email=ana@example.com
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/aisessions/server/internal/config"
	"github.com/aisessions/server/internal/database"
	apperrors "github.com/aisessions/server/internal/errors"
	"github.com/aisessions/server/internal/logger"
	"github.com/aisessions/server/internal/repository"
	"github.com/aisessions/server/internal/service"
)

func main() {
	email := flag.String("email", "", "email of the user to promote")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: promote --email=user@example.com")
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Configure(logger.Options{})
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Configure(logger.Options{Level: cfg.LogLevel})

	db, err := database.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.MigrationTimeout)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	admins := service.NewAdminService(repository.NewAdminRepository(db.DB), repository.NewUserRepository(db.DB))

	admin, err := admins.Promote(ctx, *email)
	if err != nil {
		switch apperrors.GetCode(err) {
		case apperrors.ErrCodeAlreadyExists:
			log.Info().Str("email", *email).Msg("user is already an admin")
			return
		case apperrors.ErrCodeNotFound:
			log.Fatal().Str("email", *email).Msg("no such user; they must sign in once first")
		default:
			log.Fatal().Err(err).Str("email", *email).Msg("failed to promote user")
		}
	}

	log.Info().Str("email", *email).Str("userId", admin.UserID).Msg("user promoted to admin")
}
