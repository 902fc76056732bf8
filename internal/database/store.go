// internal/database/store.go
package database

import (
	"context"
	"errors"
)

var (
	// ErrServerNotFound is returned when no registration matches an id.
	ErrServerNotFound = errors.New("server not found")

	// ErrInvalidCredentials is returned when no registration matches a
	// hostname/api-key pair. Callers must not distinguish an unknown
	// hostname from a wrong key.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Store defines the interface for registry and snapshot operations.
type Store interface {
	// Registry operations
	GetServers(ctx context.Context, filters ServerFilters) ([]Server, error)
	GetServer(ctx context.Context, id string) (*Server, error)
	CreateServer(ctx context.Context, server *Server) error
	UpdateServer(ctx context.Context, server *Server) error
	DeleteServer(ctx context.Context, id string) error

	// Authenticate resolves a hostname/api-key pair to its registration
	// in a single read. The active flag is returned as stored; callers
	// decide what an inactive match means.
	Authenticate(ctx context.Context, hostname, apiKey string) (*Server, error)

	// Snapshot operations
	GetStatuses(ctx context.Context) (map[string]ServerStatus, error)
	GetStatus(ctx context.Context, id string) (*ServerStatus, error)
	UpsertStatus(ctx context.Context, status *ServerStatus) error
	DeleteStatus(ctx context.Context, id string) error

	// Close the database connection
	Close() error
}
