package database

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"crew-schedule-bot/internal/models"
)

// newGormLogger - SQL-предупреждения в logrus; промах поиска штатный и не логируется
func newGormLogger() logger.Interface {
	return logger.New(logrus.StandardLogger(), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// Open - подключение по драйверу из конфига; sqlite по умолчанию
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch strings.ToLower(driver) {
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	case "", "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	default:
		return nil, errors.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true, // SQLite ограничения
		TranslateError:                           true, // дубли ключей -> gorm.ErrDuplicatedKey
		Logger:                                   newGormLogger(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	if dialector.Name() == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.Wrap(err, "get database instance")
		}
		// Одна запись за раз: sqlite не держит параллельных писателей
		sqlDB.SetMaxOpenConns(1)
		if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
			logrus.Infof("Warning: Failed to enable foreign keys: %v", err)
		}
	}

	return db, nil
}

// Migrate создает/обновляет все таблицы движка и справочников
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Worker{},
		&models.Site{},
		&models.Operator{},
		&models.Assignment{},
		&models.Timesheet{},
		&models.TimesheetDay{},
		&models.TimesheetSignature{},
		&models.TransportHeader{},
		&models.TransportDay{},
		&models.LongAbsence{},
		&models.ReconcileRun{},
	)
}
