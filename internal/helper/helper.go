package helper

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"letbabytalk/internal/model"
)

var loadEnvOnce sync.Once

// GetConfig returns a configuration value from the environment,
// loading the .env file on first use.
func GetConfig(key string) string {
	loadEnvOnce.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Println("No .env file loaded, using environment only")
		}
	})
	return os.Getenv(key)
}

// GetConfigDefault returns a configuration value, or def when unset.
func GetConfigDefault(key, def string) string {
	if v := GetConfig(key); v != "" {
		return v
	}
	return def
}

// Log is the process-wide logger, set up in main via InitLogger.
var Log = zap.NewNop()

// InitLogger builds the production logger and installs it as Log.
func InitLogger() (*zap.Logger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	Log = logger
	return logger, nil
}

var DB *gorm.DB

// ConnectDB opens the Postgres connection, migrates the schema and seeds
// the reference tables.
func ConnectDB() error {
	port, err := strconv.ParseUint(GetConfigDefault("DB_PORT", "5432"), 10, 32)
	if err != nil {
		return fmt.Errorf("invalid DB_PORT: %w", err)
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		GetConfigDefault("DB_HOST", "localhost"), port,
		GetConfig("DB_USER"), GetConfig("DB_PASSWORD"), GetConfig("DB_NAME"))

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(20)

	if err := Migrate(DB); err != nil {
		return err
	}

	Log.Info("database connected and migrated")
	return nil
}

// Migrate runs the schema migration and seeds reference data. Split out from
// ConnectDB so tests can run it against their own database.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.BabyProfile{},
		&model.Recording{},
		&model.CryReasonDescription{},
		&model.LegalDocument{},
	); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return Seed(db)
}

// SendEmail delivers a transactional email via SMTP.
func SendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", GetConfigDefault("SMTP_FROM", "LetBabyTalk <no-reply@letbabytalk.com>"))
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("[LetBabyTalk] %v", subject))
	m.SetBody("text/html", body)

	smtpPort, _ := strconv.ParseInt(GetConfigDefault("SMTP_PORT", "587"), 10, 32)

	d := gomail.NewDialer(GetConfig("SMTP_HOST"), int(smtpPort), GetConfig("SMTP_USER"), GetConfig("SMTP_PASSWORD"))

	return d.DialAndSend(m)
}

// DataDir is the directory uploaded audio is written to.
func DataDir() string {
	return GetConfigDefault("DATA_DIR", "uploads")
}

// ImageDir is the directory profile images are written to.
func ImageDir() string {
	return filepath.Join(DataDir(), "images")
}

// RecordingFilename maps a stored audio filename to its on-disk path.
// The name is reduced to its base to keep lookups inside the data directory.
func RecordingFilename(name string) string {
	return filepath.Join(DataDir(), filepath.Base(name))
}

// ImageFilename maps a stored image filename to its on-disk path.
func ImageFilename(name string) string {
	return filepath.Join(ImageDir(), filepath.Base(name))
}
