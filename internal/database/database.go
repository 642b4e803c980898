// Package database centralises sqlx connection helpers.  The driver is
// go-sql-driver/mysql, which also works with MariaDB.
//
// Public entry points:
//
//	Open(dsn, password)                         – conservative pool sizes.
//	OpenWithOptions(dsn, password, maxOpen, maxIdle) – fine-grained control.
//	Migrate(db)                                 – apply embedded schema.
//
// Both open helpers normalise the DSN (parseTime, UTC, multi-statements),
// inject the password kept out of YAML, and Ping before returning so
// callers fail fast during bootstrap.
package database

import (
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Open returns a *sqlx.DB with 15 max open, 5 idle, and a 30-minute
// connection lifetime.
func Open(dsn, password string) (*sqlx.DB, error) {
	return OpenWithOptions(dsn, password, 15, 5)
}

// OpenWithOptions lets callers tune maxOpen and maxIdle.
func OpenWithOptions(dsn, password string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	norm, err := NormalizeDSN(dsn, password)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open("mysql", norm)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NormalizeDSN parses dsn, sets the password when one is supplied, and
// forces the flags the stores rely on: DATETIME scanning into time.Time,
// UTC location, multi-statement migrations, and matched-row counts so a
// no-op UPDATE still reports its row.
func NormalizeDSN(dsn, password string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	if password != "" {
		cfg.Passwd = password
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.MultiStatements = true
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}

// IsDuplicate recognises MySQL/MariaDB unique-key violations (error 1062).
func IsDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return false
}
