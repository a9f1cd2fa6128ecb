package database

import (
	"fmt"
	"time"

	"sweetshop/internal/config"
	"sweetshop/internal/models"
	"sweetshop/internal/repositories"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store bundles the repositories of one storage backend.
type Store struct {
	Users  repositories.UserRepository
	Sweets repositories.SweetRepository
	// DB is nil for the memory backend.
	DB *gorm.DB
}

// Close releases the underlying database connections, if any.
func (s *Store) Close() error {
	if s.DB == nil {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// NewStore opens the configured backend, migrates it and builds the repositories.
// w receives GORM's log output; nil silences it.
func NewStore(cfg config.DBConfig, w logger.Writer) (*Store, error) {
	if cfg.Driver == config.DriverMemory {
		return &Store{
			Users:  repositories.NewMemoryUserRepository(),
			Sweets: repositories.NewMemorySweetRepository(),
		}, nil
	}

	db, err := Open(cfg, w)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, err
	}
	return &Store{
		Users:  repositories.NewGORMUserRepository(db),
		Sweets: repositories.NewGORMSweetRepository(db),
		DB:     db,
	}, nil
}

// Open connects to a SQL backend.
func Open(cfg config.DBConfig, w logger.Writer) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	case config.DriverMySQL:
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gormLogger := logger.Default.LogMode(logger.Silent)
	if w != nil {
		gormLogger = logger.New(w, logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if cfg.Driver == config.DriverSQLite {
		// SQLite allows one writer; a single connection serializes access.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// Migrate creates or updates the users and sweets tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Sweet{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}
