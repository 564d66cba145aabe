package infra

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"backend/internal/config"
	"backend/internal/logger"
)

var globalDB *gorm.DB

// InitDatabase opens the postgres connection pool and stores it globally.
func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.Database.GetDSN()

	level := gormlogger.Warn
	if cfg.Log.Level == "debug" {
		level = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: NewGormZapLogger(level, 200*time.Millisecond),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.DBName),
	)

	globalDB = db
	return db, nil
}

// GetDB returns the global database handle.
func GetDB() *gorm.DB {
	if globalDB == nil {
		panic("database not initialized, call InitDatabase() first")
	}
	return globalDB
}

// CloseDatabase closes the underlying connection pool.
func CloseDatabase() error {
	if globalDB == nil {
		return nil
	}
	sqlDB, err := globalDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// HealthCheck pings the database.
func HealthCheck() error {
	if globalDB == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := globalDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
