// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pgtest starts a throwaway PostgreSQL for integration tests.
//
// One container is shared by the whole test binary; each test gets its own
// pool and truncates the tables it touches.
package pgtest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/taibuivan/textbook/internal/platform/migration"
)

var (
	once      sync.Once
	sharedDSN string
	initErr   error
)

// Setup returns a pool connected to a migrated database.
//
// The test is skipped with -short or when no container runtime is reachable.
func Setup(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("pgtest: skipping integration test in short mode")
	}

	once.Do(func() {
		sharedDSN, initErr = startContainerAndMigrate()
	})
	if initErr != nil {
		t.Skipf("pgtest: database unavailable: %v", initErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, sharedDSN)
	if err != nil {
		t.Fatalf("pgtest: failed to create pgxpool: %v", err)
	}

	t.Cleanup(pool.Close)

	// Start every test from empty tables.
	if _, err := pool.Exec(ctx, "TRUNCATE chapter_content_assignments, contents, chapters RESTART IDENTITY CASCADE"); err != nil {
		t.Fatalf("pgtest: truncate: %v", err)
	}

	return pool
}

func startContainerAndMigrate() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:17-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "textbook",
			"POSTGRES_PASSWORD": "textbook",
			"POSTGRES_DB":       "textbook_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("get mapped port: %w", err)
	}

	dsn := fmt.Sprintf("postgres://textbook:textbook@%s:%s/textbook_test?sslmode=disable", host, port.Port())

	if err := migration.RunUp(dsn, MigrationsPath(), slog.Default()); err != nil {
		return "", fmt.Errorf("migrate up: %w", err)
	}

	return dsn, nil
}

// MigrationsPath resolves data/migrations relative to this source file.
func MigrationsPath() string {
	_, currentFile, _, _ := runtime.Caller(0)
	// currentFile is .../internal/platform/postgres/pgtest/pgtest.go
	return filepath.Join(filepath.Dir(currentFile), "..", "..", "..", "..", "data", "migrations")
}
