// Package sqlstore implements the datasources interfaces over MySQL, PostgreSQL or SQLite.
package sqlstore

import (
	"context"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/huandu/go-sqlbuilder"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const mysqlParamStr string = "?parseTime=true"

const sqliteParamStr string = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

// Open connects to the database behind uri and returns a repository speaking its dialect.
func Open(ctx context.Context, driver, uri string) (*Repository, error) {
	switch driver {
	case DriverMySQL:
		db, err := ConnectMySQL(ctx, uri)
		if err != nil {
			return nil, err
		}
		return New(db, sqlbuilder.MySQL), nil
	case DriverPostgres:
		db, err := ConnectPostgres(ctx, uri)
		if err != nil {
			return nil, err
		}
		return New(db, sqlbuilder.PostgreSQL), nil
	case DriverSQLite:
		db, err := ConnectSQLite(ctx, uri)
		if err != nil {
			return nil, err
		}
		return New(db, sqlbuilder.SQLite), nil
	default:
		return nil, fmt.Errorf("unknown datastore driver: %s", driver)
	}
}

func ConnectMySQL(ctx context.Context, uri string) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", uri+mysqlParamStr)
	if err != nil {
		return nil, fmt.Errorf("connecting to MySQL DB: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)

	err = db.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking MySQL DB connection: %w", err)
	}

	return db, nil
}

func ConnectPostgres(ctx context.Context, uri string) (*sqlx.DB, error) {
	db, err := sqlx.Open("pgx", uri)
	if err != nil {
		return nil, fmt.Errorf("connecting to PostgreSQL DB: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)

	err = db.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking PostgreSQL DB connection: %w", err)
	}

	return db, nil
}

// ConnectSQLite opens the database file at path. A single connection is used so writers never
// contend with each other and ":memory:" databases are shared by every query.
func ConnectSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", path+sqliteParamStr)
	if err != nil {
		return nil, fmt.Errorf("opening SQLite DB %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	err = db.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking SQLite DB connection: %w", err)
	}

	return db, nil
}
