package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

var postgresSchema = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,
	`CREATE TABLE IF NOT EXISTS user_profile (
		user_id    UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_name  VARCHAR(100) NOT NULL,
		created_at TIMESTAMP WITHOUT TIME ZONE NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS file_object (
		id            UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		original_name TEXT NOT NULL,
		content_type  TEXT NOT NULL,
		size_bytes    BIGINT NOT NULL,
		storage_path  TEXT NOT NULL UNIQUE,
		uploaded_at   TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		uploaded_by   UUID NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_file_uploaded_at ON file_object (uploaded_at DESC)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS user_profile (
		user_id    TEXT PRIMARY KEY,
		user_name  VARCHAR(100) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS file_object (
		id            TEXT PRIMARY KEY,
		original_name TEXT NOT NULL,
		content_type  TEXT NOT NULL,
		size_bytes    INTEGER NOT NULL,
		storage_path  TEXT NOT NULL UNIQUE,
		uploaded_at   DATETIME NOT NULL,
		uploaded_by   TEXT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_file_uploaded_at ON file_object (uploaded_at DESC)`,
}

// Provision creates the tables (and the uuid extension on PostgreSQL) when
// they are missing. Safe to run against an already provisioned database.
func Provision(ctx context.Context, db *gorm.DB) error {
	stmts := sqliteSchema
	if db.Dialector.Name() == "postgres" {
		stmts = postgresSchema
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, stmt := range stmts {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("provision schema: %w", err)
			}
		}
		return nil
	})
}
