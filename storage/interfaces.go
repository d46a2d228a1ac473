package storage

import (
	"context"

	"banks-etl/models"
)

// TableWriter replaces a whole relational table with the given rows.
// rows must be a slice of structs (or struct pointers) with db tags.
type TableWriter interface {
	ReplaceTable(ctx context.Context, table string, rows any) error
	Close() error
}

// Querier executes literal SQL and returns the full result set.
type Querier interface {
	Query(ctx context.Context, query string) (*models.QueryResult, error)
}

// Store is a relational sink that can also be queried.
type Store interface {
	TableWriter
	Querier
}
