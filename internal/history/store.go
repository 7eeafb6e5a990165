// internal/history/store.go
package history

import (
	"context"
	"fmt"
	"io"

	"medsearch-service/internal/common/config"
	"medsearch-service/internal/common/database"
	"medsearch-service/internal/models"
)

// Store is the append-only persistence the ledger sits on. FindSorted
// returns at most limit queries, newest first.
type Store interface {
	Insert(ctx context.Context, q models.Query) error
	FindSorted(ctx context.Context, limit int) ([]models.Query, error)
	Ping(ctx context.Context) error
	Name() string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the configured backend. The returned closer releases its
// connections.
func Open(ctx context.Context, cfg *config.Config) (Store, io.Closer, error) {
	collection := cfg.History.Collection

	switch cfg.History.Backend {
	case "postgres":
		client, err := database.NewPostgres(ctx, cfg.Database.Postgres)
		if err != nil {
			return nil, nil, err
		}
		store, err := NewPostgresStore(client.DB, collection)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to prepare history table: %w", err)
		}
		return store, client, nil

	case "redis":
		client, err := database.NewRedis(ctx, cfg.Database.Redis)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisStore(client.Client, collection), client, nil

	case "elasticsearch":
		client, err := database.NewElasticsearch(ctx, cfg.Database.Elasticsearch)
		if err != nil {
			return nil, nil, err
		}
		store := NewElasticsearchStore(client.Client, collection)
		if err := store.EnsureIndex(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to prepare history index: %w", err)
		}
		return store, client, nil

	case "memory", "":
		return NewMemoryStore(), nopCloser{}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported history backend %q", cfg.History.Backend)
	}
}
