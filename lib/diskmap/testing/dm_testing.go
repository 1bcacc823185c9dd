package testing

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"testing"

	"github.com/ValentinKolb/fKV/lib/diskmap"
	"github.com/puzpuzpuz/xsync/v3"
)

// MapFactory is a function that creates a fresh disk map for a test
type MapFactory func(tb testing.TB) diskmap.IDiskMap[string, int]

// RunDiskMapTests runs a comprehensive test suite for a disk map implementation.
func RunDiskMapTests(t *testing.T, name string, factory MapFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Insert&Get", func(t *testing.T) {
			testInsertGet(t, factory(t))
		})

		t.Run("DoubleInsert", func(t *testing.T) {
			testDoubleInsert(t, factory(t))
		})

		t.Run("Overwrite", func(t *testing.T) {
			testOverwrite(t, factory(t))
		})

		t.Run("Alter", func(t *testing.T) {
			testAlter(t, factory(t))
		})

		t.Run("AlterWithDefault", func(t *testing.T) {
			testAlterWithDefault(t, factory(t))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(t))
		})

		t.Run("GetKeys", func(t *testing.T) {
			testGetKeys(t, factory(t))
		})

		t.Run("ContainsKey&Len", func(t *testing.T) {
			testContainsKeyLen(t, factory(t))
		})

		t.Run("Entries&Clear", func(t *testing.T) {
			testEntriesClear(t, factory(t))
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory(t))
		})

		t.Run("Scenario", func(t *testing.T) {
			testScenario(t, factory(t))
		})

		t.Run("ConcurrentAlter", func(t *testing.T) {
			testConcurrentAlter(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// requireCode checks that an error carries the expected disk map error code
func requireCode(t testing.TB, err error, want diskmap.ErrCode) {
	t.Helper()
	if err == nil {
		t.Errorf("Expected error with code %s, got nil", want)
		return
	}
	code, ok := diskmap.CodeOf(err)
	if !ok {
		t.Errorf("Expected typed disk map error, got %v", err)
		return
	}
	if code != want {
		t.Errorf("Expected error code %s, got %s (%v)", want, code, err)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testInsertGet(t *testing.T, m diskmap.IDiskMap[string, int]) {
	if err := m.Insert("a", 1); err != nil {
		t.Fatalf("Unexpected error on Insert: %v", err)
	}
	if err := m.Insert("b", 2); err != nil {
		t.Fatalf("Unexpected error on Insert: %v", err)
	}
	if err := m.Insert("c", 3); err != nil {
		t.Fatalf("Unexpected error on Insert: %v", err)
	}

	v, err := m.Get("a")
	if err != nil {
		t.Fatalf("Unexpected error on Get: %v", err)
	}
	if v != 1 {
		t.Errorf("Expected value 1, got %d", v)
	}

	_, err = m.Get("nonexistent-key")
	requireCode(t, err, diskmap.ErrCCannotOpenFile)
}

func testDoubleInsert(t *testing.T, m diskmap.IDiskMap[string, int]) {
	if err := m.Insert("a", 1); err != nil {
		t.Fatalf("Unexpected error on first Insert: %v", err)
	}

	// Insert is create-only, no silent overwrite
	err := m.Insert("a", 2)
	requireCode(t, err, diskmap.ErrCCannotOpenFile)
	if !errors.Is(err, fs.ErrExist) {
		t.Errorf("Expected error to wrap fs.ErrExist, got %v", err)
	}

	// the original value must be untouched
	v, err := m.Get("a")
	if err != nil {
		t.Fatalf("Unexpected error on Get: %v", err)
	}
	if v != 1 {
		t.Errorf("Expected original value 1 after failed re-insert, got %d", v)
	}
}

func testOverwrite(t *testing.T, m diskmap.IDiskMap[string, int]) {
	if err := m.Insert("a", 1); err != nil {
		t.Fatalf("Unexpected error on Insert: %v", err)
	}

	if err := m.Overwrite("a", 42); err != nil {
		t.Fatalf("Unexpected error on Overwrite: %v", err)
	}

	v, err := m.Get("a")
	if err != nil {
		t.Fatalf("Unexpected error on Get: %v", err)
	}
	if v != 42 {
		t.Errorf("Expected value 42 after Overwrite, got %d", v)
	}

	// Overwrite never creates entries
	err = m.Overwrite("missing", 1)
	requireCode(t, err, diskmap.ErrCCannotOpenFile)
}

func testAlter(t *testing.T, m diskmap.IDiskMap[string, int]) {
	if err := m.Insert("a", 12000); err != nil {
		t.Fatalf("Unexpected error on Insert: %v", err)
	}

	if err := m.Alter("a", func(v int) int { return v + 1 }); err != nil {
		t.Fatalf("Unexpected error on Alter: %v", err)
	}

	v, err := m.Get("a")
	if err != nil {
		t.Fatalf("Unexpected error on Get: %v", err)
	}
	if v != 12001 {
		t.Errorf("Expected value 12001 after Alter, got %d", v)
	}

	// shrinking alterations must truncate the old content
	if err := m.Alter("a", func(int) int { return 1 }); err != nil {
		t.Fatalf("Unexpected error on Alter: %v", err)
	}
	v, err = m.Get("a")
	if err != nil {
		t.Fatalf("Unexpected error on Get after shrinking Alter: %v", err)
	}
	if v != 1 {
		t.Errorf("Expected value 1 after shrinking Alter, got %d", v)
	}

	err = m.Alter("missing", func(v int) int { return v })
	requireCode(t, err, diskmap.ErrCCannotOpenFile)
}

func testAlterWithDefault(t *testing.T, m diskmap.IDiskMap[string, int]) {
	double := func(v int) int { return v * 2 }

	// absent key: default is inserted first, then altered
	if err := m.AlterWithDefault("absent", 10, double); err != nil {
		t.Fatalf("Unexpected error on AlterWithDefault: %v", err)
	}
	v, err := m.Get("absent")
	if err != nil {
		t.Fatalf("Unexpected error on Get: %v", err)
	}
	if v != 20 {
		t.Errorf("Expected f(default)=20 for absent key, got %d", v)
	}

	// present key: the stored value is altered, the default is ignored
	if err := m.Insert("present", 3); err != nil {
		t.Fatalf("Unexpected error on Insert: %v", err)
	}
	if err := m.AlterWithDefault("present", 10, double); err != nil {
		t.Fatalf("Unexpected error on AlterWithDefault: %v", err)
	}
	v, err = m.Get("present")
	if err != nil {
		t.Fatalf("Unexpected error on Get: %v", err)
	}
	if v != 6 {
		t.Errorf("Expected f(v)=6 for present key, got %d", v)
	}
}

func testDelete(t *testing.T, m diskmap.IDiskMap[string, int]) {
	if err := m.Insert("a", 1); err != nil {
		t.Fatalf("Unexpected error on Insert: %v", err)
	}

	if err := m.Delete("a"); err != nil {
		t.Fatalf("Unexpected error on Delete: %v", err)
	}

	_, err := m.Get("a")
	requireCode(t, err, diskmap.ErrCCannotOpenFile)

	// deleting a missing key is an error, not a no-op
	err = m.Delete("a")
	requireCode(t, err, diskmap.ErrCCannotDeleteFile)
}

func testGetKeys(t *testing.T, m diskmap.IDiskMap[string, int]) {
	expected := map[string]bool{"a": true, "b": true, "c": true}

	i := 0
	for key := range expected {
		i++
		if err := m.Insert(key, i); err != nil {
			t.Fatalf("Unexpected error on Insert: %v", err)
		}
	}

	keys, err := m.GetKeys()
	if err != nil {
		t.Fatalf("Unexpected error on GetKeys: %v", err)
	}

	// order is unspecified, compare as a set
	if len(keys) != len(expected) {
		t.Fatalf("Expected %d keys, got %d (%v)", len(expected), len(keys), keys)
	}
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if !expected[key] {
			t.Errorf("Unexpected key %q in GetKeys result", key)
		}
		if seen[key] {
			t.Errorf("Duplicate key %q in GetKeys result", key)
		}
		seen[key] = true
	}
}

func testContainsKeyLen(t *testing.T, m diskmap.IDiskMap[string, int]) {
	found, err := m.ContainsKey("a")
	if err != nil {
		t.Fatalf("Unexpected error on ContainsKey: %v", err)
	}
	if found {
		t.Errorf("Expected ContainsKey to return false on empty map")
	}

	n, err := m.Len()
	if err != nil {
		t.Fatalf("Unexpected error on Len: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected Len 0 on empty map, got %d", n)
	}

	if err := m.Insert("a", 1); err != nil {
		t.Fatalf("Unexpected error on Insert: %v", err)
	}

	found, err = m.ContainsKey("a")
	if err != nil {
		t.Fatalf("Unexpected error on ContainsKey: %v", err)
	}
	if !found {
		t.Errorf("Expected ContainsKey to return true after Insert")
	}

	n, err = m.Len()
	if err != nil {
		t.Fatalf("Unexpected error on Len: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected Len 1, got %d", n)
	}
}

func testEntriesClear(t *testing.T, m diskmap.IDiskMap[string, int]) {
	expected := map[string]int{"a": 1, "b": 2, "c": 3}
	for key, value := range expected {
		if err := m.Insert(key, value); err != nil {
			t.Fatalf("Unexpected error on Insert: %v", err)
		}
	}

	entries, err := m.Entries()
	if err != nil {
		t.Fatalf("Unexpected error on Entries: %v", err)
	}
	if len(entries) != len(expected) {
		t.Fatalf("Expected %d entries, got %d", len(expected), len(entries))
	}
	for _, entry := range entries {
		if expected[entry.Key] != entry.Value {
			t.Errorf("Entry mismatch for key %q: expected %d, got %d",
				entry.Key, expected[entry.Key], entry.Value)
		}
	}

	if err := m.Clear(); err != nil {
		t.Fatalf("Unexpected error on Clear: %v", err)
	}

	n, err := m.Len()
	if err != nil {
		t.Fatalf("Unexpected error on Len: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected Len 0 after Clear, got %d", n)
	}

	// clearing an empty map is a no-op
	if err := m.Clear(); err != nil {
		t.Fatalf("Unexpected error on Clear of empty map: %v", err)
	}
}

func testEdgeCases(t *testing.T, m diskmap.IDiskMap[string, int]) {
	// zero values round-trip
	if err := m.Insert("zero", 0); err != nil {
		t.Fatalf("Unexpected error on Insert: %v", err)
	}
	v, err := m.Get("zero")
	if err != nil {
		t.Fatalf("Unexpected error on Get: %v", err)
	}
	if v != 0 {
		t.Errorf("Expected zero value, got %d", v)
	}

	// negative values round-trip
	if err := m.Insert("negative", -42); err != nil {
		t.Fatalf("Unexpected error on Insert: %v", err)
	}
	v, err = m.Get("negative")
	if err != nil {
		t.Fatalf("Unexpected error on Get: %v", err)
	}
	if v != -42 {
		t.Errorf("Expected -42, got %d", v)
	}

	// keys with unusual but legal file name characters
	for _, key := range []string{"with space", "with.dot", "with-dash", "with_underscore", "UPPER"} {
		if err := m.Insert(key, 1); err != nil {
			t.Errorf("Unexpected error inserting key %q: %v", key, err)
			continue
		}
		if _, err := m.Get(key); err != nil {
			t.Errorf("Unexpected error reading key %q: %v", key, err)
		}
	}
}

// testScenario runs a representative end-to-end usage sequence
func testScenario(t *testing.T, m diskmap.IDiskMap[string, int]) {
	for key, value := range map[string]int{"a": 1, "b": 2, "c": 3} {
		if err := m.Insert(key, value); err != nil {
			t.Fatalf("Unexpected error on Insert: %v", err)
		}
	}

	v, err := m.Get("a")
	if err != nil {
		t.Fatalf("Unexpected error on Get: %v", err)
	}
	if v != 1 {
		t.Errorf("Expected 1, got %d", v)
	}

	if err := m.Alter("a", func(x int) int { return x + 1 }); err != nil {
		t.Fatalf("Unexpected error on Alter: %v", err)
	}
	v, err = m.Get("a")
	if err != nil {
		t.Fatalf("Unexpected error on Get: %v", err)
	}
	if v != 2 {
		t.Errorf("Expected 2 after Alter, got %d", v)
	}

	if err := m.Delete("b"); err != nil {
		t.Fatalf("Unexpected error on Delete: %v", err)
	}

	keys, err := m.GetKeys()
	if err != nil {
		t.Fatalf("Unexpected error on GetKeys: %v", err)
	}
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		seen[key] = true
	}
	if len(seen) != 2 || !seen["a"] || !seen["c"] {
		t.Errorf("Expected keys {a, c}, got %v", keys)
	}

	n, err := m.Len()
	if err != nil {
		t.Fatalf("Unexpected error on Len: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected Len 2, got %d", n)
	}
}

// testConcurrentAlter checks that parallel alters on one key are serialized
// by the exclusive lock: no increment is lost and every read decodes.
func testConcurrentAlter(t *testing.T, m diskmap.IDiskMap[string, int]) {
	const (
		numWorkers      = 8
		altersPerWorker = 25
	)

	if err := m.Insert("counter", 0); err != nil {
		t.Fatalf("Unexpected error on Insert: %v", err)
	}

	// per-worker count of successfully applied alters
	applied := xsync.NewMapOf[int, int]()

	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for w := 0; w < numWorkers; w++ {
		go func(workerID int) {
			defer wg.Done()

			for i := 0; i < altersPerWorker; i++ {
				if err := m.Alter("counter", func(v int) int { return v + 1 }); err != nil {
					t.Errorf("Worker %d: unexpected error on Alter: %v", workerID, err)
					return
				}
				count, _ := applied.Load(workerID)
				applied.Store(workerID, count+1)
			}
		}(w)
	}

	// concurrent readers must always see a fully decodable value
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			if _, err := m.Get("counter"); err != nil {
				t.Errorf("Concurrent Get failed (torn write?): %v", err)
				return
			}
		}
	}()

	wg.Wait()
	<-done

	totalApplied := 0
	applied.Range(func(_ int, count int) bool {
		totalApplied += count
		return true
	})

	v, err := m.Get("counter")
	if err != nil {
		t.Fatalf("Unexpected error on final Get: %v", err)
	}
	if v != totalApplied {
		t.Errorf("Lost update: %d alters applied but counter is %d", totalApplied, v)
	}
	if fullRun := numWorkers * altersPerWorker; !t.Failed() && v != fullRun {
		t.Errorf("Expected counter %d, got %d", fullRun, v)
	}
}

// keyFor builds a deterministic per-index key, shared by the benchmarks
func keyFor(prefix string, i int) string {
	return fmt.Sprintf("%s-%d", prefix, i)
}
