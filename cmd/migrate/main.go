// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command migrate manages the textbook database schema.
//
// Usage:
//
//	migrate up            apply every pending migration
//	migrate down [-n N]   revert the last N migrations (default 1)
//	migrate version       print the current schema version
//	migrate seed          create a demo chapter with a few blocks
//
// DATABASE_URL and MIGRATION_PATH are read like the API server reads them.
// Exit codes: 0 = success, 1 = error, 2 = usage.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/taibuivan/textbook/internal/core/book"
	"github.com/taibuivan/textbook/internal/core/chapter"
	"github.com/taibuivan/textbook/internal/core/content"
	"github.com/taibuivan/textbook/internal/platform/apperr"
	"github.com/taibuivan/textbook/internal/platform/config"
	"github.com/taibuivan/textbook/internal/platform/constants"
	"github.com/taibuivan/textbook/internal/platform/migration"
	pgstore "github.com/taibuivan/textbook/internal/platform/postgres"
	"github.com/taibuivan/textbook/pkg/pointer"
)

const usage = `usage: migrate <up|down|version|seed> [options]

  up              apply every pending migration
  down [-n N]     revert the last N migrations (default 1)
  version         print the current schema version
  seed            create a demo chapter with a few content blocks
`

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil)).With(slog.String("app", "textbook-migrate"))

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fail(logger, "load configuration", err)
	}
	if !cfg.UsesPostgres() {
		fail(logger, "check configuration", fmt.Errorf("STORAGE_DRIVER=%s has no schema to migrate", cfg.StorageDriver))
	}

	switch command := os.Args[1]; command {
	case "up":
		if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, logger); err != nil {
			fail(logger, "migrate up", err)
		}

	case "down":
		flags := flag.NewFlagSet("down", flag.ExitOnError)
		steps := flags.Int("n", 1, "number of migrations to revert")
		_ = flags.Parse(os.Args[2:])

		withRunner(cfg, logger, func(runner *migration.Runner) error { return runner.Down(*steps) })

	case "version":
		withRunner(cfg, logger, func(runner *migration.Runner) error {
			version, dirty, err := runner.Version()
			if err != nil {
				return err
			}
			fmt.Printf("version=%d dirty=%t\n", version, dirty)
			return nil
		})

	case "seed":
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := seed(ctx, cfg, logger); err != nil {
			fail(logger, "seed", err)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}
}

func withRunner(cfg *config.Config, logger *slog.Logger, fn func(runner *migration.Runner) error) {
	runner, err := migration.New(cfg.DatabaseURL, cfg.MigrationPath, logger)
	if err != nil {
		fail(logger, "open migrations", err)
	}
	defer runner.Close()

	if err := fn(runner); err != nil {
		runner.Close()
		fail(logger, "run migration command", err)
	}
}

// seed goes through the managers so the demo data obeys the same rules as API writes.
func seed(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := book.NewPostgresStore(pool)
	chapters := chapter.NewService(store, logger)
	contents := content.NewService(store, nil, logger)

	demo, err := chapters.Create(ctx, chapter.CreateChapterInput{
		Number:       1,
		Title:        "La célula",
		Topic:        "Biología",
		Introduction: "Unidad básica de la vida.",
		State:        string(book.StatePublished),
	})
	if apperr.HasCode(err, apperr.CodeDuplicateNumber) {
		logger.Info("seed_skipped", slog.String("reason", "chapter 1 already exists"))
		return nil
	}
	if err != nil {
		return err
	}

	blocks := []content.CreateContentInput{
		{Kind: string(book.KindText), Topic: "Biología", Body: pointer.To("Todos los seres vivos están formados por células.")},
		{Kind: string(book.KindImage), Topic: "Biología", FileURL: pointer.To("https://example.com/" + constants.MediaKeyPrefix + "celula-animal.png"), Format: pointer.To("png")},
		{Kind: string(book.KindVideo), Topic: "Biología", FileURL: pointer.To("https://example.com/" + constants.MediaKeyPrefix + "mitosis.mp4"), DurationSeconds: pointer.To(95.0)},
	}

	for index, input := range blocks {
		block, err := contents.Create(ctx, input)
		if err != nil {
			return err
		}
		if _, err := contents.AssignToChapter(ctx, demo.ID, block.ID, index+1); err != nil {
			return err
		}
	}

	logger.Info("seed_completed", slog.String("chapter_id", demo.ID), slog.Int("blocks", len(blocks)))
	return nil
}

func fail(logger *slog.Logger, step string, err error) {
	logger.Error("migrate_failed", slog.String("step", step), slog.Any("error", err))
	os.Exit(1)
}
