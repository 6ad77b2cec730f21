// Package sqlitey holds helpers for the sql databases used by skosd.
//
// Queries are built using sqlbuilder and executed using database/sql.
// The default database is an (in-memory or file-backed) sqlite database, mysql is supported as well.
package sqlitey

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/huandu/go-sqlbuilder"

	_ "github.com/glebarez/go-sqlite"
	_ "github.com/go-sql-driver/mysql"
)

// Drivers supported by Open.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

var errUnknownDriver = errors.New("unknown sql driver")

// Flavor returns the sqlbuilder flavor to use for the given driver.
func Flavor(driver string) (sqlbuilder.Flavor, error) {
	switch driver {
	case DriverSQLite:
		return sqlbuilder.SQLite, nil
	case DriverMySQL:
		return sqlbuilder.MySQL, nil
	}
	return 0, fmt.Errorf("%w %q", errUnknownDriver, driver)
}

// Open opens a database with the given driver and data source name.
func Open(driver, dsn string) (*sql.DB, sqlbuilder.Flavor, error) {
	flavor, err := Flavor(driver)
	if err != nil {
		return nil, 0, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, 0, err
	}

	// every connection to an in-memory sqlite database is a new database
	if flavor == sqlbuilder.SQLite {
		db.SetMaxOpenConns(1)
	}
	return db, flavor, nil
}

// Queryer is implemented by *sql.DB and *sql.Tx.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Exec builds and executes each of builders in order.
func Exec(ctx context.Context, q Queryer, builders ...sqlbuilder.Builder) error {
	for _, b := range builders {
		query, args := b.Build()
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return nil
}

// Row builds and runs b, and scans the single resulting row into dest.
func Row(ctx context.Context, q Queryer, b sqlbuilder.Builder, dest ...any) error {
	query, args := b.Build()
	return q.QueryRowContext(ctx, query, args...).Scan(dest...)
}

// Column builds and runs b, and returns the first column of every row.
func Column[T any](ctx context.Context, q Queryer, b sqlbuilder.Builder) (values []T, err error) {
	query, args := b.Build()
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, rows.Close())
	}()

	for rows.Next() {
		var value T
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, rows.Err()
}

// Tx runs f inside a transaction.
// When f returns an error, the transaction is rolled back.
func Tx(ctx context.Context, db *sql.DB, f func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	if err := f(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Any converts values for use in sqlbuilder conditions.
func Any[T any](values []T) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
