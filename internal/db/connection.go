// Package db manages the GORM Postgres connection.
package db

import (
	"fmt"
	"net/url"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens a GORM connection to Postgres. Extra connection
// options are merged into the DSN's query string.
func Connect(dsn string, options map[string]string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is not set")
	}

	if len(options) > 0 {
		merged, err := mergeOptions(dsn, options)
		if err != nil {
			return nil, err
		}
		dsn = merged
	}

	database, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return database, nil
}

func mergeOptions(dsn string, options map[string]string) (string, error) {
	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse database DSN: %w", err)
	}
	query := parsed.Query()
	for k, v := range options {
		query.Set(k, v)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
