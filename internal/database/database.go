package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database struct {
	DB *gorm.DB
}

func New(databaseURL string) (*Database, error) {
	var db *gorm.DB
	var err error

	if strings.HasPrefix(databaseURL, "sqlite://") {
		// SQLite for development
		dbPath := strings.TrimPrefix(databaseURL, "sqlite://")
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	} else {
		// PostgreSQL for production
		db, err = gorm.Open(postgres.Open(databaseURL), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Create tables manually with raw SQL
	createTablesSQL := `
	CREATE TABLE IF NOT EXISTS webhook_events (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		idempotency_key TEXT UNIQUE NOT NULL,
		topic TEXT NOT NULL,
		shop_domain TEXT,
		raw_body TEXT NOT NULL,
		hmac_valid BOOLEAN DEFAULT false,
		received_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS cart_snapshots (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		cart_token TEXT NOT NULL,
		total DECIMAL(10,2) NOT NULL,
		items TEXT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS suggestion_logs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		request_id TEXT NOT NULL,
		cart_token TEXT,
		provider TEXT NOT NULL,
		model TEXT,
		payload TEXT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS leads (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email TEXT UNIQUE NOT NULL,
		boutique_name TEXT NOT NULL,
		shop_url TEXT,
		consent BOOLEAN DEFAULT false,
		source TEXT DEFAULT 'LANDING',
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS click_events (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		event_type TEXT NOT NULL,
		cart_token TEXT,
		product_id TEXT,
		shop_domain TEXT,
		metadata TEXT,
		occurred_at TIMESTAMPTZ DEFAULT NOW()
	);
	`

	err = db.Exec(createTablesSQL).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
