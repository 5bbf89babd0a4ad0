//go:build !sqlite

package storage

import "fmt"

// newSQLiteStore stands in for the sqlite backend when the binary is built
// without the sqlite tag.
func newSQLiteStore(path string) (Store, error) {
	return nil, fmt.Errorf("sqlite store %q requested but this binary was built without -tags sqlite", path)
}
