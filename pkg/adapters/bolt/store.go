// Package bolt stores evaluation results in a single-file BoltDB database.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/recalc/pkg/domain"
	"go.etcd.io/bbolt"
)

const resultBucket = "results"

var errBucketMissing = errors.New("result bucket is missing")

// Store implements ports.ResultStore on BoltDB. Keys are session IDs, so
// List comes back in lexical order for free.
type Store struct {
	db *bbolt.DB
}

// Open opens the database at path, creating it if needed.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: storage path is required", domain.ErrInvalidArgument)
	}

	if err := os.MkdirAll(filepath.Dir(filepath.Clean(path)), 0o755); err != nil {
		return nil, fmt.Errorf("ensure storage directory: %w", err)
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(resultBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create result bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save replaces the result stored for its session.
func (s *Store) Save(ctx context.Context, result *domain.EvaluationResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if result == nil || strings.TrimSpace(result.SessionID) == "" {
		return fmt.Errorf("%w: result missing session ID", domain.ErrInvalidArgument)
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(resultBucket))
		if bucket == nil {
			return errBucketMissing
		}
		return bucket.Put([]byte(result.SessionID), payload)
	})
}

// Load reads a result back.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.EvaluationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result domain.EvaluationResult
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(resultBucket))
		if bucket == nil {
			return errBucketMissing
		}
		payload := bucket.Get([]byte(sessionID))
		if payload == nil {
			return fmt.Errorf("%w: %s", domain.ErrResultNotFound, sessionID)
		}
		// payload is only valid inside the transaction.
		if err := json.Unmarshal(payload, &result); err != nil {
			return fmt.Errorf("failed to unmarshal result %s: %w", sessionID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes a result.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sessionID == "" {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(resultBucket))
		if bucket == nil {
			return errBucketMissing
		}
		return bucket.Delete([]byte(sessionID))
	})
}

// List returns the stored session IDs in key order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids := []string{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(resultBucket))
		if bucket == nil {
			return errBucketMissing
		}
		return bucket.ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
