// Package storetest exercises the store.Backend contract. Both backends run
// the same suite so their observable behavior cannot drift apart.
package storetest

import (
	"bytes"
	"testing"

	"github.com/inkforge-labs/inkforge/pkg/store"
)

// Run exercises every primitive of the backend.
func Run(t *testing.T, backend store.Backend) {
	t.Run("Cell", func(t *testing.T) { testCell(t, backend) })
	t.Run("Map", func(t *testing.T) { testMap(t, backend) })
	t.Run("MapAscend", func(t *testing.T) { testMapAscend(t, backend) })
	t.Run("Log", func(t *testing.T) { testLog(t, backend) })
	t.Run("RegionShapes", func(t *testing.T) { testRegionShapes(t, backend) })
	t.Run("RegionRebind", func(t *testing.T) { testRegionRebind(t, backend) })
}

func testCell(t *testing.T, backend store.Backend) {
	cell, err := backend.Cell("test/cell")
	if err != nil {
		t.Fatalf("Cell: %v", err)
	}

	if _, ok, err := cell.Get(); err != nil || ok {
		t.Fatalf("Expected unset cell, got ok=%v err=%v", ok, err)
	}

	if err := cell.Set([]byte("hello")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := cell.Get()
	if err != nil || !ok {
		t.Fatalf("Get after Set: ok=%v err=%v", ok, err)
	}
	if string(v) != "hello" {
		t.Errorf("Expected hello, got %s", v)
	}

	if err := cell.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := cell.Get(); ok {
		t.Error("Expected cell unset after Clear")
	}
}

func testMap(t *testing.T, backend store.Backend) {
	m, err := backend.Map("test/map")
	if err != nil {
		t.Fatalf("Map: %v", err)
	}

	if _, ok, err := m.Get([]byte("a")); err != nil || ok {
		t.Fatalf("Expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := m.Set([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := m.Set([]byte("a"), []byte("2")); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, ok, err := m.Get([]byte("a"))
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(v) != "2" {
		t.Errorf("Expected overwritten value 2, got %s", v)
	}

	n, err := m.Len()
	if err != nil || n != 1 {
		t.Fatalf("Expected Len 1, got %d err=%v", n, err)
	}

	removed, err := m.Delete([]byte("a"))
	if err != nil || !removed {
		t.Fatalf("Delete: removed=%v err=%v", removed, err)
	}
	removed, err = m.Delete([]byte("a"))
	if err != nil || removed {
		t.Fatalf("Expected second delete to report absent, got removed=%v err=%v", removed, err)
	}
}

func testMapAscend(t *testing.T, backend store.Backend) {
	m, err := backend.Map("test/map-ascend")
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	for _, k := range []string{"b", "d", "a", "c"} {
		if err := m.Set([]byte(k), []byte(k)); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}

	var got []string
	err = m.Ascend(nil, nil, func(key, _ []byte) bool {
		got = append(got, string(key))
		return true
	})
	if err != nil {
		t.Fatalf("Ascend: %v", err)
	}
	want := []string{"a", "b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d keys, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected order %v, got %v", want, got)
		}
	}

	// Half-open range: lo inclusive, hi exclusive.
	got = nil
	err = m.Ascend([]byte("b"), []byte("d"), func(key, _ []byte) bool {
		got = append(got, string(key))
		return true
	})
	if err != nil {
		t.Fatalf("Ascend range: %v", err)
	}
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("Expected [b c], got %v", got)
	}

	// Early stop.
	got = nil
	_ = m.Ascend(nil, nil, func(key, _ []byte) bool {
		got = append(got, string(key))
		return false
	})
	if len(got) != 1 {
		t.Errorf("Expected early stop after 1 key, got %v", got)
	}

	if err := m.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := m.Len(); n != 0 {
		t.Errorf("Expected empty map after Clear, got %d", n)
	}
}

func testLog(t *testing.T, backend store.Backend) {
	l, err := backend.Log("test/log")
	if err != nil {
		t.Fatalf("Log: %v", err)
	}

	for i := 0; i < 3; i++ {
		idx, err := l.Append([]byte{byte(i)})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if idx != uint64(i) {
			t.Errorf("Expected index %d, got %d", i, idx)
		}
	}

	n, err := l.Len()
	if err != nil || n != 3 {
		t.Fatalf("Expected Len 3, got %d err=%v", n, err)
	}

	v, ok, err := l.Get(1)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(v, []byte{1}) {
		t.Errorf("Expected entry 1, got % x", v)
	}
	if _, ok, _ := l.Get(3); ok {
		t.Error("Expected out-of-range Get to report absent")
	}

	var seen []uint64
	err = l.Iterate(func(index uint64, _ []byte) bool {
		seen = append(seen, index)
		return true
	})
	if err != nil {
		t.Fatalf("Iterate: %v", err)
	}
	if len(seen) != 3 || seen[0] != 0 || seen[2] != 2 {
		t.Errorf("Expected indexes [0 1 2], got %v", seen)
	}

	if err := l.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if n, _ := l.Len(); n != 0 {
		t.Errorf("Expected empty log after Reset, got %d", n)
	}
	idx, err := l.Append([]byte("x"))
	if err != nil || idx != 0 {
		t.Errorf("Expected indexes to restart at 0 after Reset, got %d err=%v", idx, err)
	}
}

func testRegionShapes(t *testing.T, backend store.Backend) {
	if _, err := backend.Map("test/shape"); err != nil {
		t.Fatalf("Map: %v", err)
	}
	if _, err := backend.Cell("test/shape"); err != store.ErrRegionShapeConflict {
		t.Errorf("Expected ErrRegionShapeConflict, got %v", err)
	}
	if _, err := backend.Log("test/shape"); err != store.ErrRegionShapeConflict {
		t.Errorf("Expected ErrRegionShapeConflict, got %v", err)
	}
}

func testRegionRebind(t *testing.T, backend store.Backend) {
	m1, err := backend.Map("test/rebind")
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if err := m1.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	m2, err := backend.Map("test/rebind")
	if err != nil {
		t.Fatalf("Second Map request: %v", err)
	}
	v, ok, err := m2.Get([]byte("k"))
	if err != nil || !ok || string(v) != "v" {
		t.Errorf("Expected rebound handle over the same data, got ok=%v v=%s err=%v", ok, v, err)
	}
}
