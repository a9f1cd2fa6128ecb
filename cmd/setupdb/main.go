// setupdb creates the database tables and an administrator account.
//
// Usage:
//
//	go run ./cmd/setupdb --email admin@shop.com --password s3cret --full-name "Shop Admin"
//	go run ./cmd/setupdb --auto
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"sweetshop/internal/config"
	"sweetshop/internal/database"
	"sweetshop/internal/services"
	"sweetshop/internal/token"
	"sweetshop/pkg/logger"

	"github.com/spf13/pflag"
)

const (
	autoEmail    = "admin@example.com"
	autoPassword = "admin123"
	autoFullName = "Admin User"
)

type options struct {
	email    string
	password string
	fullName string
	auto     bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("setupdb", pflag.ContinueOnError)
	fs.StringVar(&opts.email, "email", "", "admin email")
	fs.StringVar(&opts.password, "password", "", "admin password")
	fs.StringVar(&opts.fullName, "full-name", "", "admin full name")
	fs.BoolVar(&opts.auto, "auto", false, "create the default admin ("+autoEmail+")")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if opts.auto {
		opts.email, opts.password, opts.fullName = autoEmail, autoPassword, autoFullName
		return opts, nil
	}
	if opts.email == "" || opts.password == "" {
		return opts, errors.New("--email and --password are required unless --auto is set")
	}
	if opts.fullName == "" {
		opts.fullName = opts.email
	}
	return opts, nil
}

func run(ctx context.Context, cfg *config.Config, opts options, log *logger.Logger) error {
	if cfg.DB.Driver == config.DriverMemory {
		return errors.New("setupdb needs a persistent DB_DRIVER, not memory")
	}

	store, err := database.NewStore(cfg.DB, log)
	if err != nil {
		return err
	}
	defer store.Close()
	log.Info().Str("driver", cfg.DB.Driver).Msg("tables created")

	tokens, err := token.NewManager(cfg.JWT.Secret, cfg.JWT.Expiration)
	if err != nil {
		return err
	}
	authService, err := services.NewAuthService(store.Users, tokens, cfg.JWT.BcryptCost)
	if err != nil {
		return err
	}

	existing, err := authService.FindByEmail(ctx, opts.email)
	if err != nil {
		return err
	}
	if existing != nil {
		log.Info().Str("email", opts.email).Bool("is_admin", existing.IsAdmin).Msg("user already exists, nothing to do")
		return nil
	}

	admin, err := authService.CreateAdmin(ctx, opts.email, opts.password, opts.fullName)
	if err != nil {
		return err
	}
	log.Info().Uint("user_id", admin.ID).Str("email", admin.Email).Msg("admin user created")
	return nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "setupdb: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "setupdb: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	if err := run(context.Background(), cfg, opts, log); err != nil {
		log.Fatal().Err(err).Msg("setup failed")
	}
}
