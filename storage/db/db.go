// Package db opens the key-value databases behind the storage.
package db

import (
	"cmp"
	"fmt"
	"os"
	"testing"

	"github.com/vocdoni/arbo/memdb"
	dvotedb "go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

const (
	// TypeMemory keeps everything in memory, lost on exit.
	TypeMemory = "memory"
	// TypePebble persists to a pebble database in a directory.
	TypePebble = dvotedb.TypePebble
)

// New opens a database of type typ. dir is ignored for memory databases.
func New(typ, dir string) (dvotedb.Database, error) {
	switch typ {
	case TypeMemory:
		return memdb.New(), nil
	case TypePebble:
		if dir == "" {
			return nil, fmt.Errorf("a directory is required for %s databases", typ)
		}
		return metadb.New(typ, dir)
	default:
		return nil, fmt.Errorf("invalid db type: %q. Available types: %q, %q", typ, TypeMemory, TypePebble)
	}
}

// ForTest returns the database type used by tests, DB_TYPE or pebble.
func ForTest() (typ string) {
	return cmp.Or(os.Getenv("DB_TYPE"), TypePebble)
}

// NewTest opens a test database in a temporary directory, closed when the
// test ends. Callers must not close it themselves: pebble panics on a second
// close.
func NewTest(tb testing.TB) dvotedb.Database {
	database, err := New(ForTest(), tb.TempDir())
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() { database.Close() })
	return database
}
