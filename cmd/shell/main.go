package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-erp-client/internal/config"
	"github.com/jrsteele09/go-erp-client/session/sessionrepo"
	"github.com/jrsteele09/go-erp-client/shell"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("shell exited with error")
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	displayAppname(c.GetAppName())

	if err := os.MkdirAll(c.GetDataFolder(), 0700); err != nil {
		return fmt.Errorf("creating data folder: %w", err)
	}
	repo, err := sessionrepo.NewBBoltRepo(filepath.Join(c.GetDataFolder(), "session.db"), c.GetStorageNamespace())
	if err != nil {
		return fmt.Errorf("opening session storage: %w", err)
	}
	defer repo.Close()

	app, err := shell.New(c, repo)
	if err != nil {
		return fmt.Errorf("wiring shell: %w", err)
	}

	if err := app.Hydrate(); err != nil {
		return fmt.Errorf("hydrating session: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if !app.Session().IsAuthenticated {
		username := config.GetEnv("ERP_USERNAME", "")
		password := config.GetEnv("ERP_PASSWORD", "")
		if username == "" || password == "" {
			log.Info().Msg("no stored session and no ERP_USERNAME/ERP_PASSWORD set, exiting unauthenticated")
			return nil
		}
		if err := app.Login(ctx, username, password); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}

	// Round-trip through the resilient pipeline: renews the credential
	// transparently if the stored access token has expired.
	if err := app.RefreshIdentity(ctx); err != nil {
		return fmt.Errorf("refreshing identity: %w", err)
	}

	s := app.Session()
	log.Info().
		Str("user", s.Principal.DisplayName()).
		Str("role", string(s.Principal.Role)).
		Str("school", s.Principal.SchoolName).
		Msg("session ready")
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
