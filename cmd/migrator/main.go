package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/training-api/internal/repository"
	"github.com/noah-isme/training-api/internal/service"
	"github.com/noah-isme/training-api/migrations"
	"github.com/noah-isme/training-api/pkg/config"
	"github.com/noah-isme/training-api/pkg/database"
	"github.com/noah-isme/training-api/pkg/logger"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: migrator <command> [flags]

Commands:
  up                 apply all pending migrations
  down               roll back the latest migration
  status             print migration status
  create-superadmin  create the super-admin account
      -username string
      -email string
      -password string
`)
}

func main() {
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch args[0] {
	case "up":
		err = migrations.Up(ctx, db.DB)
	case "down":
		err = migrations.Down(ctx, db.DB)
	case "status":
		err = migrations.Status(ctx, db.DB)
	case "create-superadmin":
		fs := flag.NewFlagSet("create-superadmin", flag.ExitOnError)
		username := fs.String("username", "", "super-admin username")
		email := fs.String("email", "", "super-admin email")
		password := fs.String("password", "", "super-admin password")
		_ = fs.Parse(args[1:])

		admin, created, ensureErr := service.EnsureSuperAdmin(ctx, repository.NewUserRepository(db), nil, service.SuperAdminRequest{
			Username: *username,
			Email:    *email,
			Password: *password,
		})
		err = ensureErr
		switch {
		case err != nil:
		case created:
			logr.Info("super-admin created", zap.String("username", admin.Username), zap.String("id", admin.ID))
		default:
			logr.Info("super-admin already exists", zap.String("username", admin.Username))
		}
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		logr.Fatal("migrator command failed", zap.String("command", args[0]), zap.Error(err))
	}
}
