// Package dbms maps connection targets to database/sql drivers.
//
// A target names its database system by scheme, optionally behind a "jdbc:"
// prefix:
//
//	duckdb:                       in-memory DuckDB
//	duckdb:/var/lib/app.db        DuckDB file
//	postgres://user@host/db       PostgreSQL through lib/pq
//	jdbc:postgresql://host/db     same, JDBC spelling
package dbms

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/lib/pq"
	_ "github.com/marcboeker/go-duckdb/v2"
)

// DBMS describes one supported database system.
type DBMS struct {
	// Name is the scheme used in targets.
	Name string
	// Driver is the database/sql driver name.
	Driver string
	// DSN turns a target, without any "jdbc:" prefix, into the driver's
	// data source name.
	DSN func(target string) string
}

var (
	DuckDB = DBMS{
		Name:   "duckdb",
		Driver: "duckdb",
		DSN: func(target string) string {
			_, rest, _ := strings.Cut(target, ":")
			return rest
		},
	}
	PostgreSQL = DBMS{
		Name:   "postgresql",
		Driver: "postgres",
		DSN:    func(target string) string { return target },
	}
)

// ErrUnknown is returned for a target whose scheme is not registered.
var ErrUnknown = errors.New("dbms: unknown database system")

var (
	mu       sync.RWMutex
	registry = map[string]DBMS{}
)

func init() {
	Register(DuckDB)
	Register(PostgreSQL, "postgres")
}

// Register makes d resolvable by its name and by each alias.
func Register(d DBMS, aliases ...string) {
	mu.Lock()
	defer mu.Unlock()
	for _, name := range append([]string{d.Name}, aliases...) {
		registry[strings.ToLower(name)] = d
	}
}

// Lookup returns the system registered under name.
func Lookup(name string) (DBMS, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := registry[strings.ToLower(name)]
	return d, ok
}

// Scheme returns the database system named by target.
func Scheme(target string) string {
	target = strings.TrimPrefix(target, "jdbc:")
	scheme, _, _ := strings.Cut(target, ":")
	return strings.ToLower(scheme)
}

// Resolve returns the system target names and the data source name to open
// it with.
func Resolve(target string) (DBMS, string, error) {
	scheme := Scheme(target)
	d, ok := Lookup(scheme)
	if !ok {
		return DBMS{}, "", fmt.Errorf("%w %q in target %q", ErrUnknown, scheme, target)
	}
	return d, d.DSN(strings.TrimPrefix(target, "jdbc:")), nil
}

// SQLState returns the SQLSTATE code carried by err, when the driver reports
// one.
func SQLState(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), true
	}
	return "", false
}

// ConditionName returns the PostgreSQL condition name for err, such as
// "unique_violation".
func ConditionName(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name(), true
	}
	return "", false
}
