package db

import (
	"time"

	"samanvay/internal/domain/agency"
	"samanvay/internal/domain/outbox"
	"samanvay/internal/domain/project"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenGorm opens MySQL with the pool settings used in production.
func OpenGorm(dsn string) (*gorm.DB, error) {
	return OpenGormWithDialector(mysql.Open(dsn))
}

// OpenSQLite is for single-node deployments and local development.
func OpenSQLite(path string) (*gorm.DB, error) {
	gdb, err := OpenGormWithDialector(sqlite.Open(path))
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers anyway; one conn also keeps :memory: coherent
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return gdb, nil
}

func OpenGormWithDialector(dial gorm.Dialector) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}
	db, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&agency.Agency{},
		&project.Project{},
		&project.Assignment{},
		&project.Milestone{},
		&outbox.Event{},
	)
}
