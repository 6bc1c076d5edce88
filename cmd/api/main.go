package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"dronewerx/internal/config"
	"dronewerx/internal/database"
	"dronewerx/internal/domain/fileobject"
	"dronewerx/internal/pkg/logging"
	"dronewerx/internal/server"
	"dronewerx/internal/storage"
	"dronewerx/internal/sweep"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	l := logging.New(cfg.Log.Level, cfg.Log.Format)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, l); err != nil {
		l.WithError(err).Fatal("api stopped")
	}
}

func run(cfg *config.Config, l *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dsn, err := cfg.Database.DSN()
	if err != nil {
		return err
	}
	db, err := database.Connect(dsn, database.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        logging.GormLevel(cfg.Log.Level),
		Log:             l,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			l.WithError(err).Error("close database")
		}
	}()

	if err := database.Provision(ctx, db); err != nil {
		return err
	}
	l.Info("schema provisioned")

	blobs := storage.NewLocal(cfg.Storage.BaseDir, cfg.Storage.MaxBytes)
	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.NewRouter(server.Deps{
			Config: cfg,
			DB:     db,
			Blobs:  blobs,
			Log:    l,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		l.WithFields(logrus.Fields{
			"addr":         cfg.HTTPAddr,
			"storage_base": cfg.Storage.BaseDir,
			"max_upload":   cfg.Storage.MaxBytes,
			"app_env":      cfg.AppEnv,
		}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		l.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Sweep.Interval > 0 {
		sweeper := sweep.New(
			fileobject.NewRepository(db),
			blobs,
			cfg.Sweep.Grace,
			l.WithField("component", "sweep"),
		)
		g.Go(func() error {
			return sweeper.Loop(gctx, cfg.Sweep.Interval)
		})
	}

	return g.Wait()
}
