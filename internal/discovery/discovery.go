package discovery

import (
	"context"
	"errors"
	"log/slog"

	"github.com/clarvo-ai/modelgen/internal/config"
	"github.com/clarvo-ai/modelgen/internal/schema"
)

// Discoverer reflects the catalog of a source database.
type Discoverer interface {
	// Connect opens the catalog connection.
	Connect(ctx context.Context) error

	// Discover extracts the namespace snapshot. Structural reflection
	// failures are returned; enum metadata failures only degrade the result.
	Discover(ctx context.Context) (*schema.Schema, error)

	// Close closes the database connection.
	Close() error
}

// ErrNotConnected is returned by Discover before Connect succeeds.
var ErrNotConnected = errors.New("not connected; call Connect first")

// New creates a Discoverer for the given source configuration.
func New(cfg *config.SourceConfig, logger *slog.Logger) (Discoverer, error) {
	switch cfg.Driver {
	case "", "pgx", "postgres":
		return NewPostgres(cfg, logger)
	default:
		return nil, &UnsupportedDriverError{Driver: cfg.Driver}
	}
}

// UnsupportedDriverError is returned when the configured driver is not supported.
type UnsupportedDriverError struct {
	Driver string
}

func (e *UnsupportedDriverError) Error() string {
	return "unsupported database driver: " + e.Driver
}

// SchemaNotFoundError is returned when the target namespace does not exist.
type SchemaNotFoundError struct {
	Schema string
}

func (e *SchemaNotFoundError) Error() string {
	return "schema " + e.Schema + " does not exist"
}
