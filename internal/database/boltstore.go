// internal/database/boltstore.go - BoltDB implementation of Store
package database

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var (
	ServersBucket = []byte("servers")
	StatusBucket  = []byte("status")
	MetaBucket    = []byte("meta")
)

type BoltStore struct {
	db   *bbolt.DB
	path string
}

func NewBoltStore(path string) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB: %w", err)
	}

	store := &BoltStore{db: db, path: path}

	if err := store.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return store, nil
}

func (s *BoltStore) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{ServersBucket, StatusBucket, MetaBucket}
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
}

func (s *BoltStore) GetServers(ctx context.Context, filters ServerFilters) ([]Server, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var servers []Server

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(ServersBucket)
		return b.ForEach(func(k, v []byte) error {
			var server Server
			if err := json.Unmarshal(v, &server); err != nil {
				return fmt.Errorf("failed to unmarshal server %s: %w", k, err)
			}

			if filters.Active != nil && server.Active != *filters.Active {
				return nil
			}

			servers = append(servers, server)
			return nil
		})
	})

	return servers, err
}

func (s *BoltStore) GetServer(ctx context.Context, id string) (*Server, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var server Server

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(ServersBucket)
		v := b.Get([]byte(id))
		if v == nil {
			return ErrServerNotFound
		}
		return json.Unmarshal(v, &server)
	})

	if err != nil {
		return nil, err
	}
	return &server, nil
}

func (s *BoltStore) CreateServer(ctx context.Context, server *Server) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if server.ID == "" {
		server.ID = uuid.New().String()
	}
	server.CreatedAt = time.Now()
	server.UpdatedAt = time.Now()

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(ServersBucket)

		data, err := json.Marshal(server)
		if err != nil {
			return fmt.Errorf("failed to marshal server: %w", err)
		}

		return b.Put([]byte(server.ID), data)
	})
}

func (s *BoltStore) UpdateServer(ctx context.Context, server *Server) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	server.UpdatedAt = time.Now()

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(ServersBucket)
		if b.Get([]byte(server.ID)) == nil {
			return ErrServerNotFound
		}

		data, err := json.Marshal(server)
		if err != nil {
			return fmt.Errorf("failed to marshal server: %w", err)
		}

		return b.Put([]byte(server.ID), data)
	})
}

func (s *BoltStore) DeleteServer(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(ServersBucket).Delete([]byte(id)); err != nil {
			return err
		}
		// Orphaned snapshots just confuse the dashboard.
		return tx.Bucket(StatusBucket).Delete([]byte(id))
	})
}

// Authenticate scans the registry inside one View transaction. The api
// key comparison is constant-time and runs exactly once whether or not
// the hostname matched, so unknown hostnames and wrong keys cost the
// same.
func (s *BoltStore) Authenticate(ctx context.Context, hostname, apiKey string) (*Server, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var matched *Server

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(ServersBucket)
		var candidate *Server

		if err := b.ForEach(func(k, v []byte) error {
			var server Server
			if err := json.Unmarshal(v, &server); err != nil {
				return fmt.Errorf("failed to unmarshal server %s: %w", k, err)
			}
			if candidate == nil && server.Hostname == hostname {
				candidate = &server
			}
			return nil
		}); err != nil {
			return err
		}

		stored := ""
		if candidate != nil {
			stored = candidate.APIKey
		}
		if subtle.ConstantTimeCompare([]byte(stored), []byte(apiKey)) == 1 && candidate != nil {
			matched = candidate
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	if matched == nil {
		return nil, ErrInvalidCredentials
	}
	return matched, nil
}

func (s *BoltStore) GetStatuses(ctx context.Context) (map[string]ServerStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	statuses := make(map[string]ServerStatus)

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(StatusBucket)
		return b.ForEach(func(k, v []byte) error {
			var status ServerStatus
			if err := json.Unmarshal(v, &status); err != nil {
				return nil // Skip malformed entries
			}
			statuses[status.ID] = status
			return nil
		})
	})

	return statuses, err
}

func (s *BoltStore) GetStatus(ctx context.Context, id string) (*ServerStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var status ServerStatus

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(StatusBucket)
		v := b.Get([]byte(id))
		if v == nil {
			return ErrServerNotFound
		}
		return json.Unmarshal(v, &status)
	})

	if err != nil {
		return nil, err
	}
	return &status, nil
}

// UpsertStatus replaces the snapshot for status.ID in a single write
// transaction. Concurrent pushes for the same id serialize here; there
// is no read-modify-write window.
func (s *BoltStore) UpsertStatus(ctx context.Context, status *ServerStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(StatusBucket)

		data, err := json.Marshal(status)
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}

		return b.Put([]byte(status.ID), data)
	})
}

func (s *BoltStore) DeleteStatus(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(StatusBucket)
		return b.Delete([]byte(id))
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
