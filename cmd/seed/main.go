// Command seed inserts sample pilot profiles. Profiles are not created by the
// API, so local environments use this to populate GET /profiles.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"dronewerx/internal/config"
	"dronewerx/internal/database"
	"dronewerx/internal/domain/profile"
	"dronewerx/internal/pkg/logging"
)

var samplePilots = []string{
	"Aigerim Sadykova",
	"Daniyar Omarov",
	"Mira Lindqvist",
	"Tomas Varga",
	"Yuki Tanaka",
}

func main() {
	reset := flag.Bool("reset", false, "delete existing profiles first")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	l := logging.New(cfg.Log.Level, cfg.Log.Format)

	dsn, err := cfg.Database.DSN()
	if err != nil {
		l.WithError(err).Fatal("invalid database config")
	}
	db, err := database.Connect(dsn, database.Options{MaxOpenConns: 1, Log: l})
	if err != nil {
		l.WithError(err).Fatal("DB connection failed")
	}
	defer database.Close(db)

	ctx := context.Background()
	if err := database.Provision(ctx, db); err != nil {
		l.WithError(err).Fatal("provision failed")
	}

	if *reset {
		l.Info("Cleaning old profiles...")
		if err := db.WithContext(ctx).Exec("DELETE FROM user_profile").Error; err != nil {
			l.WithError(err).Fatal("cleanup user_profile failed")
		}
	}

	repo := profile.NewRepository(db)
	now := time.Now().UTC().Truncate(time.Second)
	for i, name := range samplePilots {
		p := &profile.UserProfile{
			UserID:    uuid.New(),
			UserName:  name,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(ctx, p); err != nil {
			l.WithError(err).WithField("user_name", name).Fatal("create profile failed")
		}
		l.WithFields(logrus.Fields{"user_id": p.UserID, "user_name": name}).Info("profile created")
	}

	l.WithField("count", len(samplePilots)).Info("seed completed")
}
