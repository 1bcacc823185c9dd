package testing

import (
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/fKV/lib/diskmap"
)

// RunDiskMapBenchmarks runs all benchmarks for a disk map implementation
func RunDiskMapBenchmarks(b *testing.B, name string, factory MapFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Insert", func(b *testing.B) {
			benchmarkInsert(b, factory(b))
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, factory(b))
		})

		b.Run("Overwrite", func(b *testing.B) {
			benchmarkOverwrite(b, factory(b))
		})

		b.Run("Alter", func(b *testing.B) {
			benchmarkAlter(b, factory(b))
		})

		b.Run("Delete", func(b *testing.B) {
			benchmarkDelete(b, factory(b))
		})

		b.Run("GetKeys", func(b *testing.B) {
			benchmarkGetKeys(b, factory(b))
		})
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// Benchmark for Insert with unique keys
func benchmarkInsert(b *testing.B, m diskmap.IDiskMap[string, int]) {
	var counter atomic.Int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := counter.Add(1)
			if err := m.Insert(keyFor("insert", int(i)), int(i)); err != nil {
				b.Fatalf("Unexpected error on Insert: %v", err)
			}
		}
	})
}

// Benchmark for Get on a fixed working set
func benchmarkGet(b *testing.B, m diskmap.IDiskMap[string, int]) {
	const numKeys = 100
	for i := 0; i < numKeys; i++ {
		if err := m.Insert(keyFor("get", i), i); err != nil {
			b.Fatalf("Unexpected error on Insert: %v", err)
		}
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			if _, err := m.Get(keyFor("get", counter%numKeys)); err != nil {
				b.Fatalf("Unexpected error on Get: %v", err)
			}
			counter++
		}
	})
}

// Benchmark for Overwrite on a fixed working set
func benchmarkOverwrite(b *testing.B, m diskmap.IDiskMap[string, int]) {
	const numKeys = 100
	for i := 0; i < numKeys; i++ {
		if err := m.Insert(keyFor("overwrite", i), i); err != nil {
			b.Fatalf("Unexpected error on Insert: %v", err)
		}
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			if err := m.Overwrite(keyFor("overwrite", counter%numKeys), counter); err != nil {
				b.Fatalf("Unexpected error on Overwrite: %v", err)
			}
			counter++
		}
	})
}

// Benchmark for Alter on a fixed working set (includes lock contention)
func benchmarkAlter(b *testing.B, m diskmap.IDiskMap[string, int]) {
	const numKeys = 100
	for i := 0; i < numKeys; i++ {
		if err := m.Insert(keyFor("alter", i), i); err != nil {
			b.Fatalf("Unexpected error on Insert: %v", err)
		}
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			if err := m.Alter(keyFor("alter", counter%numKeys), func(v int) int { return v + 1 }); err != nil {
				b.Fatalf("Unexpected error on Alter: %v", err)
			}
			counter++
		}
	})
}

// Benchmark for Delete (entries are re-inserted outside the timer)
func benchmarkDelete(b *testing.B, m diskmap.IDiskMap[string, int]) {
	for i := 0; i < b.N; i++ {
		if err := m.Insert(keyFor("delete", i), i); err != nil {
			b.Fatalf("Unexpected error on Insert: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := m.Delete(keyFor("delete", i)); err != nil {
			b.Fatalf("Unexpected error on Delete: %v", err)
		}
	}
}

// Benchmark for GetKeys over a populated directory
func benchmarkGetKeys(b *testing.B, m diskmap.IDiskMap[string, int]) {
	const numKeys = 1000
	for i := 0; i < numKeys; i++ {
		if err := m.Insert(keyFor("keys", i), i); err != nil {
			b.Fatalf("Unexpected error on Insert: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		keys, err := m.GetKeys()
		if err != nil {
			b.Fatalf("Unexpected error on GetKeys: %v", err)
		}
		if len(keys) != numKeys {
			b.Fatalf("Expected %d keys, got %d", numKeys, len(keys))
		}
	}
}
