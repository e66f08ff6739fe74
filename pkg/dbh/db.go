// Package dbh holds our database helpers: open-or-create with migrations,
// and column types shared by our gorm models.
package dbh

import (
	"database/sql"
	"errors"
	"fmt"
	stdlog "log"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/logs"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// DBConnectFlags are flags passed to OpenDB.
type DBConnectFlags int

const DriverPostgres = "postgres"
const DriverSqlite = "sqlite3"

const (
	// DBConnectFlagWipeDB causes the entire DB to be erased and re-initialized from scratch (useful for unit tests).
	DBConnectFlagWipeDB DBConnectFlags = 1 << iota
)

var dbNotExistRegex = regexp.MustCompile(`database "[^"]+" does not exist`)

// DBConfig is the database config that we expect to find in our JSON config file.
type DBConfig struct {
	Driver   string `json:"driver"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func MakeSqliteConfig(filename string) DBConfig {
	return DBConfig{
		Driver:   DriverSqlite,
		Database: filename,
	}
}

// DSN returns a database connection string (built for Postgres and Sqlite only).
func (db *DBConfig) DSN() string {
	if db.Driver == DriverSqlite {
		return db.Database
	}
	dsn := fmt.Sprintf("host=%v user=%v password=%v dbname=%v sslmode=disable", db.Host, db.Username, db.Password, db.Database)
	if db.Port != 0 {
		dsn += fmt.Sprintf(" port=%v", db.Port)
	}
	return dsn
}

// MakeMigrationFromSQL turns an SQL string into a burntsushi migration
func MakeMigrationFromSQL(log logs.Log, migrationNumber *int, sql string) migration.Migrator {
	idx := *migrationNumber + 1
	*migrationNumber++

	return func(tx migration.LimitedTx) error {
		summary := strings.TrimSpace(sql)
		l := len(summary)
		if l > 40 {
			l = 40
		}
		if firstNewline := strings.IndexAny(summary, "\n\r"); firstNewline != -1 && firstNewline < l {
			l = firstNewline
		}
		log.Infof("Running migration %v: '%v...'", idx, summary[:l])
		_, err := tx.Exec(sql)
		return err
	}
}

// OpenDB creates a new DB, or opens an existing one, and runs all the migrations before returning.
func OpenDB(log logs.Log, dbc DBConfig, migrations []migration.Migrator, flags DBConnectFlags) (*gorm.DB, error) {
	if flags&DBConnectFlagWipeDB != 0 {
		if err := DropAllTables(log, dbc); err != nil {
			return nil, err
		}
	}

	// Common fast path, where the database already exists
	db, err := migration.Open(dbc.Driver, dbc.DSN(), migrations)
	if err == nil {
		db.Close()
		return gormOpen(dbc.Driver, dbc.DSN())
	}

	if !isDatabaseNotExist(err) {
		return nil, err
	}

	// Automatically create the database if it doesn't already exist (Postgres only;
	// sqlite creates its file on first open).
	log.Infof("Attempting to create database %v", dbc.Database)
	cfgCreate := dbc
	if dbc.Driver == DriverPostgres {
		// connect to the 'postgres' database in order to create the new DB
		cfgCreate.Database = "postgres"
	}
	if err := createDB(dbc.Driver, cfgCreate.DSN(), dbc.Database); err != nil {
		return nil, fmt.Errorf("While trying to create database '%v': %v", dbc.Database, err)
	}
	// once again, run migrations (now that the DB has been created)
	db, err = migration.Open(dbc.Driver, dbc.DSN(), migrations)
	if err != nil {
		return nil, err
	}
	db.Close()
	return gormOpen(dbc.Driver, dbc.DSN())
}

// DropAllTables deletes all tables in the given database.
// If the database does not exist, returns nil.
// This function is intended to be used by unit tests.
func DropAllTables(log logs.Log, dbc DBConfig) error {
	if dbc.Driver == DriverSqlite {
		err := os.Remove(dbc.Database)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if dbc.Driver != DriverPostgres {
		return fmt.Errorf("DropAllTables not supported on %v", dbc.Driver)
	}
	db, err := sql.Open(dbc.Driver, dbc.DSN())
	if err == nil {
		// Force delay-connect drivers to attempt a connect now
		err = db.Ping()
	}
	if isDatabaseNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}
	defer db.Close()
	log.Warnf("Erasing entire DB '%v'", dbc.Database)
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	rows, err := tx.Query(`
	SELECT table_name, table_schema
	FROM information_schema.tables
	WHERE
	table_schema <> 'pg_catalog' AND
	table_schema <> 'information_schema'`)
	if err != nil {
		return err
	}
	tables := []string{}
	for rows.Next() {
		var table, schema string
		if err := rows.Scan(&table, &schema); err != nil {
			return err
		}
		tables = append(tables, fmt.Sprintf(`"%v"."%v"`, schema, table))
	}
	for _, table := range tables {
		if _, err := tx.Exec(fmt.Sprintf("DROP TABLE %v CASCADE", table)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func gormOpen(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSqlite:
		dialector = sqlite.Open(dsn)
	}

	// Custom logger primarily so that "record not found" is never logged -
	// for us that's a normal code path, not an error.
	gormLogger := logger.New(
		stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	config := &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			// Disable pluralization of tables, so our migrations and models agree on names.
			SingularTable: true,
		},
		Logger: gormLogger,
	}
	return gorm.Open(dialector, config)
}

func isDatabaseNotExist(err error) bool {
	if err == nil {
		return false
	}
	return dbNotExistRegex.MatchString(err.Error())
}

// Create a database called dbCreateName, by connecting to dsn.
func createDB(driver, dsn, dbCreateName string) error {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := db.Exec("CREATE DATABASE " + dbCreateName); err != nil {
		return err
	}
	return nil
}
