package repository

import (
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Store - все репозитории движка над одним соединением (или одной транзакцией)
type Store struct {
	db   *gorm.DB
	inTx bool

	Assignments  AssignmentRepository
	Timesheets   TimesheetRepository
	Transports   TransportRepository
	Absences     LongAbsenceRepository
	MasterData   MasterDataRepository
	ReconcileRun ReconcileRunRepository

	logger *logrus.Logger
}

func NewStore(db *gorm.DB) *Store {
	logger := newLogger()
	logger.Info("Store initialized")
	return buildStore(db, false, logger)
}

func buildStore(db *gorm.DB, inTx bool, logger *logrus.Logger) *Store {
	return &Store{
		db:           db,
		inTx:         inTx,
		Assignments:  &GormAssignmentRepository{db: db, logger: logger},
		Timesheets:   &GormTimesheetRepository{db: db, logger: logger},
		Transports:   &GormTransportRepository{db: db, logger: logger},
		Absences:     &GormLongAbsenceRepository{db: db, logger: logger},
		MasterData:   &GormMasterDataRepository{db: db},
		ReconcileRun: &GormReconcileRunRepository{db: db},
		logger:       logger,
	}
}

// InTx выполняет fn в одной транзакции; внутри уже открытой транзакции просто вызывает fn
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(buildStore(tx, true, s.logger))
	})
}

// DB - соединение стора (для миграций и тестов)
func (s *Store) DB() *gorm.DB {
	return s.db
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.GetLevel())
	return logger
}
