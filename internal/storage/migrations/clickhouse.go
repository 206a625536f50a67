package migrations

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	chstore "policy-impact-lab/internal/storage/clickhouse"
)

// RunClickhouseMigrations creates the DSN's database if needed and applies
// all embedded SQL files, returning the open connection and the number of
// statements executed. Every file is checked before anything is sent to the
// server, so a malformed migration leaves the database untouched.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, int, error) {
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, 0, err
	}

	files, err := load(ClickhouseFS, "clickhouse")
	if err != nil {
		return nil, 0, err
	}
	var stmts []string
	for _, m := range files {
		if err := validateNoSemicolonInStrings(m.sql); err != nil {
			return nil, 0, fmt.Errorf("validate migration %s: %w", m.name, err)
		}
		// the driver rejects multi-statement Exec
		stmts = append(stmts, splitStatements(m.sql)...)
	}

	if err := createDatabase(ctx, dsn, dbName); err != nil {
		return nil, 0, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, 0, fmt.Errorf("connect clickhouse db: %w", err)
	}
	for i, stmt := range stmts {
		if err := conn.Exec(ctx, stmt); err != nil {
			conn.Close()
			return nil, i, fmt.Errorf("apply clickhouse statement %d: %w", i+1, err)
		}
	}
	return conn, len(stmts), nil
}

// createDatabase connects without a database, which ClickHouse resolves to
// the server default, and creates dbName.
func createDatabase(ctx context.Context, dsn, dbName string) error {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse admin: %w", err)
	}
	defer admin.Close()

	if err := admin.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", dbName)); err != nil {
		return fmt.Errorf("create database %s: %w", dbName, err)
	}
	return nil
}

// splitStatements splits SQL content into statements on semicolons after
// dropping blank and "--" comment lines. Semicolons inside string literals
// or block comments are not supported; validateNoSemicolonInStrings rejects
// the former before splitting.
func splitStatements(input string) []string {
	var filtered []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		filtered = append(filtered, line)
	}
	joined := strings.Join(filtered, "\n")

	var stmts []string
	for _, part := range strings.Split(joined, ";") {
		stmt := strings.TrimSpace(part)
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// validateNoSemicolonInStrings rejects SQL with a semicolon inside a
// single-quoted string.
func validateNoSemicolonInStrings(sql string) error {
	inString := false
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		if ch == '\'' {
			// Handle escaped quotes ''
			if i+1 < len(sql) && sql[i+1] == '\'' {
				i++ // skip next quote
				continue
			}
			inString = !inString
		} else if ch == ';' && inString {
			return fmt.Errorf("semicolon found inside string literal - this breaks the migration splitter")
		}
	}
	return nil
}

func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn missing database")
	}
	return db, nil
}
