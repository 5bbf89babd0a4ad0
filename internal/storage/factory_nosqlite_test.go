//go:build !sqlite

package storage

import "testing"

func TestNewStoreSQLiteUnavailable(t *testing.T) {
	if _, err := NewStore("sqlite", "pathga.db"); err == nil {
		t.Fatal("expected sqlite backend to be unavailable without the sqlite tag")
	}
}
