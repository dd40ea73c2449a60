// Package repositories provides the data access layer: postgres via GORM
// for durable state and redis for the cache-aside layer.
package repositories

import (
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"poolguard/internal/config"
	"poolguard/internal/models"
)

// DB is the global database instance used across the application.
var DB *gorm.DB

// Cache is the global cache repository.
var Cache CacheRepository

// InitDB initializes the postgres connection pool, runs migrations and
// connects the redis cache.
func InitDB() error {
	if err := initPostgres(); err != nil {
		return err
	}

	redisAddr := config.GetEnv("REDIS_HOST", "localhost") + ":" + config.GetEnv("REDIS_PORT", "6379")
	client := NewRedisClient(redisAddr, config.GetEnv("REDIS_PASSWORD", ""), config.GetIntEnv("REDIS_DB", 0))
	Cache = NewRedisCacheRepository(client)

	return DB.AutoMigrate(
		&models.User{},
		&models.Fund{},
		&models.Contribution{},
		&models.EscrowLedgerEntry{},
		&models.FeedbackEvent{},
		&models.RetrainState{},
		&models.CollusionCluster{},
		&models.Moderator{},
	)
}

func initPostgres() error {
	dsn := "host=" + config.GetEnv("DB_HOST", "localhost") +
		" user=" + config.GetEnv("DB_USER", "postgres") +
		" password=" + config.GetEnv("DB_PASSWORD", "postgres") +
		" dbname=" + config.GetEnv("DB_NAME", "poolguard") +
		" port=" + config.GetEnv("DB_PORT", "5432") +
		" sslmode=" + config.GetEnv("DB_SSLMODE", "disable")

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
		// Needed so duplicate feedback keys surface as gorm.ErrDuplicatedKey.
		TranslateError: true,
	})
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxIdleConns(config.GetIntEnv("DB_MAX_IDLE_CONNS", 10))
	sqlDB.SetMaxOpenConns(config.GetIntEnv("DB_MAX_OPEN_CONNS", 100))
	sqlDB.SetConnMaxLifetime(config.GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour))
	sqlDB.SetConnMaxIdleTime(config.GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute))

	DB = db
	return nil
}
