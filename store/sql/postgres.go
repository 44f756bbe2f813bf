package sqlstore

import (
	"database/sql"
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// NewPostgresClient builds the production persistence client over an open
// postgres connection. Callers register the embedded migrations and run
// Migrate before handing the client to NewRepositoryFactoryFromPersistence.
func NewPostgresClient(cfg persistence.Config, sqlDB *sql.DB) (*persistence.Client, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("sqlstore: sql db is required")
	}
	return persistence.New(cfg, sqlDB, pgdialect.New())
}
