package sqlstore

import (
	"path/filepath"
	"testing"

	"github.com/inkforge-labs/inkforge/pkg/store/storetest"
)

func TestBackend(t *testing.T) {
	backend, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })

	storetest.Run(t, backend)
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	backend, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	cell, err := backend.Cell("persist/cell")
	if err != nil {
		t.Fatalf("Cell: %v", err)
	}
	if err := cell.Set([]byte("durable")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := backend.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	backend, err = Open(path)
	if err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })

	cell, err = backend.Cell("persist/cell")
	if err != nil {
		t.Fatalf("Cell after reopen: %v", err)
	}
	v, ok, err := cell.Get()
	if err != nil || !ok {
		t.Fatalf("Get after reopen: ok=%v err=%v", ok, err)
	}
	if string(v) != "durable" {
		t.Errorf("Expected durable, got %s", v)
	}
}
