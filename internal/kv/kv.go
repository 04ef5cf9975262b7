// Package kv is the string key-value persistence used for conversation records.
package kv

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Store is a durable string key-value map. Delete of a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Keys returns every key with the given prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
	DriverFile   = "file"
	DriverMemory = "memory"
)

var ErrClosed = errors.New("kv store closed")

type Options struct {
	Driver string
	// Path is the database file (bolt, sqlite) or directory (file). Derived from DataDir when empty.
	Path    string
	DataDir string
}

// Open returns the backend selected by opts.Driver.
func Open(opts Options) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	if driver == "" {
		driver = DriverBolt
	}
	path := opts.Path
	if path == "" && driver != DriverMemory {
		if opts.DataDir == "" {
			return nil, errors.Errorf("kv: %s driver needs a path or data dir", driver)
		}
		path = DefaultPath(driver, opts.DataDir)
	}
	switch driver {
	case DriverBolt:
		return OpenBolt(path)
	case DriverSQLite:
		return OpenSQLite(path)
	case DriverFile:
		return OpenFile(path)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, errors.Errorf("kv: unknown driver %q", opts.Driver)
	}
}

func DefaultPath(driver, dataDir string) string {
	switch driver {
	case DriverSQLite:
		return filepath.Join(dataDir, "history.db")
	case DriverFile:
		return filepath.Join(dataDir, "history")
	default:
		return filepath.Join(dataDir, "history.bolt")
	}
}
