// Package db opens the database, applies the schema and seeds reference data.
package db

import (
	"errors"
	"fmt"
	"log"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// Registers the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/go-contracts/internal/models"
)

// Config controls ConnectAndMigrate.
type Config struct {
	DSN string
	// Migrations runs the SQL files in MigrationsDir instead of AutoMigrate.
	// Only postgres has SQL migrations; sqlite always uses AutoMigrate.
	Migrations    bool
	MigrationsDir string
	Debug         bool
	Retries       int
	RetryDelay    time.Duration
}

// Open connects with retries so the server can start before postgres is ready.
func Open(cfg Config) (*gorm.DB, error) {
	dsn := NormalizeDSN(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("database dsn is empty")
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 10
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	level := logger.Silent
	if cfg.Debug {
		level = logger.Info
	}
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(level)}

	var dialector gorm.Dialector
	if IsSQLite(dsn) {
		dialector = sqlite.Open(SQLitePath(dsn))
	} else {
		dialector = postgres.Open(dsn)
	}

	var db *gorm.DB
	var err error
	for i := 0; i < cfg.Retries; i++ {
		db, err = gorm.Open(dialector, gcfg)
		if err == nil {
			break
		}
		log.Printf("db connect attempt=%d/%d err=%v", i+1, cfg.Retries, err)
		time.Sleep(cfg.RetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}
	if err := db.Exec("SELECT 1").Error; err != nil {
		return nil, fmt.Errorf("db ping failed: %w", err)
	}
	log.Printf("db connected dsn=%s", MaskDSN(dsn))
	return db, nil
}

// Migrate applies the schema: SQL migrations when enabled for postgres,
// AutoMigrate otherwise.
func Migrate(db *gorm.DB, cfg Config) error {
	dsn := NormalizeDSN(cfg.DSN)
	if cfg.Migrations && !IsSQLite(dsn) {
		dir := cfg.MigrationsDir
		if dir == "" {
			dir = "migrations"
		}
		if err := runSQLMigrations(dir, ToURLDSN(dsn)); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range models.All() {
			if err := db.AutoMigrate(m); err != nil {
				return fmt.Errorf("automigrate %T: %w", m, err)
			}
		}
	}
	for _, table := range []string{"tenants", "users", "contracts", "service_events"} {
		if !db.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

// ConnectAndMigrate opens the database and applies the schema.
func ConnectAndMigrate(cfg Config) (*gorm.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db, cfg); err != nil {
		return nil, err
	}
	return db, nil
}

func runSQLMigrations(dir, dsn string) error {
	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
