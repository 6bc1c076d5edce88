// Command orphan_sweep removes stored blobs that no file_object row references.
// Run it from cron or by hand after an unclean shutdown.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"dronewerx/internal/config"
	"dronewerx/internal/database"
	"dronewerx/internal/domain/fileobject"
	"dronewerx/internal/pkg/logging"
	"dronewerx/internal/storage"
	"dronewerx/internal/sweep"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report orphans without removing them")
	grace := flag.Duration("grace", 0, "skip blobs newer than this (defaults to SWEEP_GRACE)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	l := logging.New(cfg.Log.Level, cfg.Log.Format)

	if *grace <= 0 {
		*grace = cfg.Sweep.Grace
	}

	dsn, err := cfg.Database.DSN()
	if err != nil {
		l.WithError(err).Fatal("invalid database config")
	}
	db, err := database.Connect(dsn, database.Options{
		MaxOpenConns: 1,
		LogLevel:     logging.GormLevel(cfg.Log.Level),
		Log:          l,
	})
	if err != nil {
		l.WithError(err).Fatal("db connect failed")
	}
	defer database.Close(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := sweep.New(
		fileobject.NewRepository(db),
		storage.NewLocal(cfg.Storage.BaseDir, cfg.Storage.MaxBytes),
		*grace,
		l,
	)
	res, err := s.Run(ctx, *dryRun)
	if err != nil {
		l.WithError(err).Fatal("orphan sweep failed")
	}
	if res.Failed > 0 {
		l.WithFields(logrus.Fields{"failed": res.Failed}).Error("some orphans could not be removed")
		os.Exit(1)
	}
}
