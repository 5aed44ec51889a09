package mysql

import (
	"context"
	"fmt"
	"time"

	applog "labswarm/pkg/logger"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	slowQueryThreshold = 500 * time.Millisecond
	maxOpenConns       = 50
	maxIdleConns       = 10
)

// Datastore wraps GORM DB and carries the active transaction through context
type Datastore struct {
	db *gorm.DB
}

// gormWriter forwards GORM diagnostics to the application logger
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	applog.WarnCtx(context.Background(), "gorm: "+format, args...)
}

// NewDatastore opens dsn with SQL warnings routed through pkg/logger
func NewDatastore(dsn string) (*Datastore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(gormWriter{}, gormlogger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		SkipDefaultTransaction: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get generic database object: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Datastore{db: db}, nil
}

// Close closes the database connection
func (ds *Datastore) Close() error {
	sqlDB, err := ds.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type contextTxKey struct{}

// ExecTx runs fn in a transaction; a returned error rolls it back
func (ds *Datastore) ExecTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return ds.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, contextTxKey{}, tx))
	})
}

// DB returns the transaction bound to ctx, or the main DB
func (ds *Datastore) DB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(contextTxKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return ds.db.WithContext(ctx)
}

// Now current time as stored in timestamp columns
func (ds *Datastore) Now() time.Time {
	return ds.db.NowFunc()
}
