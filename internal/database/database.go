package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite"
)

// Options tunes the connection pool shared by all requests.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
	Log             logrus.FieldLogger
}

// Connect opens PostgreSQL for postgres:// URLs and SQLite (modernc driver)
// for anything else. The returned handle owns a bounded pool: callers beyond
// MaxOpenConns wait for a free connection until their context expires.
func Connect(dsn string, opts Options) (*gorm.DB, error) {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(opts.LogLevel)}
	if opts.LogLevel == 0 {
		gormCfg.Logger = logger.Default.LogMode(logger.Silent)
	}

	var (
		db  *gorm.DB
		err error
	)
	sqlite := !IsPostgres(dsn)
	if sqlite {
		log.WithField("dsn", dsn).Info("using SQLite for local development")
		db, err = gorm.Open(
			gormsqlite.New(gormsqlite.Config{
				DriverName: "sqlite",
				DSN:        dsn,
			}),
			gormCfg,
		)
	} else {
		log.Info("connecting to PostgreSQL")
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database handle: %w", err)
	}

	if sqlite {
		// one connection keeps :memory: databases alive and serializes writers
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetConnMaxLifetime(0)
		return db, nil
	}

	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	return db, nil
}

// IsPostgres reports whether dsn selects the PostgreSQL driver.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Close releases the pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
