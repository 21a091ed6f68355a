package mcp

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Kevin6098/thesis-split/internal/store"
)

func TestNewServer(t *testing.T) {
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	if s := NewServer(ServerConfig{Store: st}); s == nil {
		t.Fatal("NewServer returned nil")
	}
	if s := NewServer(ServerConfig{Store: st, Version: "1.2.3"}); s == nil {
		t.Fatal("NewServer with version returned nil")
	}
}
