package persistence

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database holds the sqlite mirror connection
type Database struct {
	DB *gorm.DB
}

// NewDatabase opens (or creates) the local sqlite mirror at path and
// migrates the mirrored tables. Use ":memory:" for tests.
func NewDatabase(path string, logIface gormlogger.Interface) (*Database, error) {
	if logIface == nil {
		logIface = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:                 logIface,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite mirror: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// sqlite allows exactly one writer; a single connection also keeps
	// :memory: databases alive across calls.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&OrderModel{},
		&OrderItemModel{},
		&OrderItemOptionModel{},
		&CompanyModel{},
		&MenuItemModel{},
		&OptionItemModel{},
		&CacheMetaModel{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate mirror schema: %w", err)
	}

	return &Database{DB: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}
