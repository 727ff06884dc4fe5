// Package db holds the DuckDB connection used to read vector files through
// the spatial extension.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

var (
	instance *sql.DB
	once     sync.Once
	initErr  error
)

// Config holds database configuration. An empty DBName opens an in-memory
// database.
type Config struct {
	DataDir string
	DBName  string
}

// Get returns the singleton DuckDB connection.
func Get(cfg Config) (*sql.DB, error) {
	once.Do(func() {
		instance, initErr = Open(cfg)
	})
	return instance, initErr
}

// Open opens a new connection and loads the spatial extension.
func Open(cfg Config) (*sql.DB, error) {
	dsn := ""
	if cfg.DBName != "" {
		duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(duckdbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
		}
		dsn = filepath.Join(duckdbDir, cfg.DBName+".duckdb")
	}

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, err
	}
	if err := LoadSpatial(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// LoadSpatial installs (when missing) and loads the spatial extension.
func LoadSpatial(conn *sql.DB) error {
	if _, err := conn.Exec("LOAD spatial;"); err == nil {
		return nil
	}
	if _, err := conn.Exec("INSTALL spatial; LOAD spatial;"); err != nil {
		return fmt.Errorf("failed to load duckdb spatial extension: %w", err)
	}
	return nil
}

// Close closes the singleton connection.
func Close() error {
	if instance != nil {
		return instance.Close()
	}
	return nil
}

// Literal quotes s as a SQL string literal. Table functions such as ST_Read
// take their path as a constant.
func Literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
