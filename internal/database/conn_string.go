package database

import (
	"fmt"
	"net/url"

	"github.com/rickgao/feedstream/internal/config"
)

// BuildConnString builds a PostgreSQL connection string for the event store.
// The password is query-escaped so reserved characters survive parsing.
func BuildConnString(cfg config.PostgresConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		url.PathEscape(cfg.Name),
		sslMode,
	)
}
