// Package testing provides standardised tests and benchmarks for disk map
// implementations that satisfy the diskmap.IDiskMap interface.
//
// The package contains:
//   - testing: A test suite covering the full operation contract, including
//     create-only insert semantics, lock discipline under concurrent alters
//     and the enumeration-derived helpers
//   - benchmark: Performance tests for measuring throughput of common
//     operations against a real file system
//
// Example usage:
//
//	// Creating a factory function that opens a fresh map per test
//	factory := func(tb testing.TB) diskmap.IDiskMap[string, int] {
//		m, err := diskmap.OpenNew[string, int](tb.TempDir()+"/store", diskmap.StringKeys(), nil)
//		if err != nil {
//			tb.Fatalf("failed to open map: %v", err)
//		}
//		return m
//	}
//
//	// Running the standard test suite
//	dmtesting.RunDiskMapTests(t, "CBOR", factory)
//
//	// Running performance benchmarks
//	dmtesting.RunDiskMapBenchmarks(b, "CBOR", factory)
package testing
