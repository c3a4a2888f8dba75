// Package db opens the configured storage backend.
package db

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"tiertrack/internal/config"
	"tiertrack/pkg/journal"
	"tiertrack/pkg/task"
)

// Connect opens a Postgres pool and checks that the server answers.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is empty")
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Backend is an opened task store and its journal.
type Backend struct {
	Tasks   task.Store
	Journal journal.Store
	close   func()
}

// Close releases the backend's connections.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// Open opens the store named by cfg.Store.Driver, creating tables as
// needed. The file and SQLite drivers keep the journal in memory.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	defaults := cfg.Settings()

	switch cfg.Store.Driver {
	case config.DriverFile:
		store, err := task.NewFileStore(cfg.Store.Path, defaults)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		log.Printf("db: file store at %s", store.Path())
		return &Backend{Tasks: store, Journal: journal.NewMemStore()}, nil

	case config.DriverSQLite:
		store, err := task.NewSQLiteStore(cfg.Store.Path, defaults)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		log.Printf("db: sqlite store at %s", cfg.Store.Path)
		return &Backend{
			Tasks:   store,
			Journal: journal.NewMemStore(),
			close:   func() { store.Close() },
		}, nil

	case config.DriverPostgres:
		pool, err := Connect(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect: %w", err)
		}
		tasks := task.NewPgStore(pool, defaults)
		entries := journal.NewPgStore(pool)

		// Ensure tables exist
		if err := tasks.EnsureTable(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ensure task tables: %w", err)
		}
		if err := entries.EnsureTable(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ensure journal table: %w", err)
		}
		log.Println("db: postgres store")
		return &Backend{Tasks: tasks, Journal: entries, close: pool.Close}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
