// Package cmd provides shared construction helpers for the approvia binaries.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/campushq/approvia/pkg/persistence"
	"github.com/campushq/approvia/pkg/persistence/file"
	"github.com/campushq/approvia/pkg/persistence/postgresql"
)

// NewPersistence creates the persistence layer matching the database URL
// scheme: postgres for postgres:// and postgresql://, file storage otherwise.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	scheme, rest, found := strings.Cut(databaseURL, "://")

	switch {
	case found && (scheme == "postgres" || scheme == "postgresql"):
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to create PostgreSQL persistence: %w", err))
		}

		return p
	case found && scheme == "file":
		return file.NewPersistence(rest)
	default:
		return file.NewPersistence(databaseURL)
	}
}
