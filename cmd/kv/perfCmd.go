package kv

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/fKV/cmd/util"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for fKV stores",
		Long:    "",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix  = "__perf"
	perfValueSize  = 1024
	perfNumThreads = 10
	perfKeySpread  = 100
	perfSkip       = make([]string, 0)
	perfRegistry   = gometrics.NewRegistry()
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. insert,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "value-size"
	perfTestCmd.Flags().Int(key, 1024, util.WrapString("Size of the benchmark values (in bytes)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfValueSize = viper.GetInt("value-size")
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for fKV stores")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("Directory: %s\n", store.Directory())
	fmt.Printf("Codec: %s\n", viper.GetString("codec"))
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Printf("Keys: %d\n", perfKeySpread)
	fmt.Printf("Value size: %d bytes\n", perfValueSize)
	fmt.Println()

	fmt.Println("starting tests...")

	value := strings.Repeat("x", perfValueSize)

	// Create results map
	results := make(map[string]testing.BenchmarkResult)

	insertResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("insert") {
			return
		}

		// insert is create-only, so every iteration needs a fresh key
		var counter atomic.Int64
		timer := perfTimer("insert")

		// cleanup
		b.Cleanup(func() {
			n := counter.Load()
			for i := int64(0); i < n; i++ {
				k := fmt.Sprintf("%s-insert-%d", perfKeyPrefix, i)
				if err := store.Delete(k); err != nil {
					log.Printf("(insert) - error deleting key: %v\n", err)
				}
			}
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				k := fmt.Sprintf("%s-insert-%d", perfKeyPrefix, counter.Add(1)-1)
				start := time.Now()
				err := store.Insert(k, value)
				timer.UpdateSince(start)
				if err != nil {
					log.Printf("(insert) - error inserting key: %v\n", err)
				}
			}
		})
	})

	results["insert"] = insertResult
	printResult("insert", insertResult)

	getResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("get") {
			return
		}

		// prepare keys
		getKey, iter := perfKeys("get")
		timer := perfTimer("get")

		// insert keys
		iter(func(k string) {
			if err := store.Insert(k, value); err != nil {
				log.Printf("(get) - error inserting key: %v\n", err)
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				if err := store.Delete(k); err != nil {
					log.Printf("(get) - error deleting key: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				_, err := store.Get(getKey(counter))
				timer.UpdateSince(start)
				if err != nil {
					log.Printf("(get) - error getting key: %v\n", err)
				}
				counter++
			}
		})
	})

	results["get"] = getResult
	printResult("get", getResult)

	overwriteResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("overwrite") {
			return
		}

		// prepare keys
		getKey, iter := perfKeys("overwrite")
		timer := perfTimer("overwrite")

		// insert keys
		iter(func(k string) {
			if err := store.Insert(k, value); err != nil {
				log.Printf("(overwrite) - error inserting key: %v\n", err)
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				if err := store.Delete(k); err != nil {
					log.Printf("(overwrite) - error deleting key: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				err := store.Overwrite(getKey(counter), value)
				timer.UpdateSince(start)
				if err != nil {
					log.Printf("(overwrite) - error overwriting key: %v\n", err)
				}
				counter++
			}
		})
	})

	results["overwrite"] = overwriteResult
	printResult("overwrite", overwriteResult)

	alterResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("alter") {
			return
		}

		// prepare keys
		getKey, iter := perfKeys("alter")
		timer := perfTimer("alter")

		// insert keys
		iter(func(k string) {
			if err := store.Insert(k, value); err != nil {
				log.Printf("(alter) - error inserting key: %v\n", err)
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				if err := store.Delete(k); err != nil {
					log.Printf("(alter) - error deleting key: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				err := store.Alter(getKey(counter), func(v string) string { return v })
				timer.UpdateSince(start)
				if err != nil {
					log.Printf("(alter) - error altering key: %v\n", err)
				}
				counter++
			}
		})
	})

	results["alter"] = alterResult
	printResult("alter", alterResult)

	hasResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("has") {
			return
		}

		// prepare keys
		getKey, iter := perfKeys("has")
		timer := perfTimer("has")

		// insert keys
		iter(func(k string) {
			if err := store.Insert(k, value); err != nil {
				log.Printf("(has) - error inserting key: %v\n", err)
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				if err := store.Delete(k); err != nil {
					log.Printf("(has) - error deleting key: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				_, err := store.ContainsKey(getKey(counter))
				timer.UpdateSince(start)
				if err != nil {
					log.Printf("(has) - error checking key: %v\n", err)
				}
				counter++
			}
		})
	})

	results["has"] = hasResult
	printResult("has", hasResult)

	hasNotResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("has-not") {
			return
		}

		timer := perfTimer("has-not")

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				k := fmt.Sprintf("%s-has-not-%d", perfKeyPrefix, counter%perfKeySpread)
				start := time.Now()
				_, err := store.ContainsKey(k)
				timer.UpdateSince(start)
				if err != nil {
					log.Printf("(has-not) - error checking key: %v\n", err)
				}
				counter++
			}
		})
	})

	results["has-not"] = hasNotResult
	printResult("has-not", hasNotResult)

	deleteResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("delete") {
			return
		}

		// each iteration inserts a fresh key, only the delete is timed
		var counter atomic.Int64
		timer := perfTimer("delete")

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				k := fmt.Sprintf("%s-delete-%d", perfKeyPrefix, counter.Add(1)-1)
				if err := store.Insert(k, value); err != nil {
					log.Printf("(delete) - error inserting key: %v\n", err)
					continue
				}
				start := time.Now()
				err := store.Delete(k)
				timer.UpdateSince(start)
				if err != nil {
					log.Printf("(delete) - error deleting key: %v\n", err)
				}
			}
		})
	})

	results["delete"] = deleteResult
	printResult("delete", deleteResult)

	mixedUsageResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("mixed") {
			return
		}

		// prepare keys
		getKey, iter := perfKeys("mixed")
		timer := perfTimer("mixed")

		// insert keys
		iter(func(k string) {
			if err := store.Insert(k, value); err != nil {
				log.Printf("(mixed) - error inserting key: %v\n", err)
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				if err := store.Delete(k); err != nil {
					log.Printf("(mixed) - error deleting key: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				key := getKey(counter)
				var err error
				start := time.Now()
				switch counter % 4 {
				case 0: // overwrite
					err = store.Overwrite(key, value)
				case 1: // get
					_, err = store.Get(key)
				case 2: // alter
					err = store.Alter(key, func(v string) string { return v })
				case 3: // has
					_, err = store.ContainsKey(key)
				}
				timer.UpdateSince(start)

				if err != nil {
					log.Printf("(mixed) - error performing operation (%d): %v\n", counter%4, err)
				}
				counter++
			}
		})
	})

	results["mixed"] = mixedUsageResult
	printResult("mixed", mixedUsageResult)

	// Print latency percentiles collected during the benchmarks
	fmt.Println()
	fmt.Println("Latency percentiles:")
	for _, test := range []string{"insert", "get", "overwrite", "alter", "has", "has-not", "delete", "mixed"} {
		printPercentiles(test)
	}

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// perfTimer returns the latency timer for a test
func perfTimer(test string) gometrics.Timer {
	return gometrics.GetOrRegisterTimer(test, perfRegistry)
}

// creates an array of test keys and functions to work with them
func perfKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// printPercentiles prints the recorded latency distribution of a test
func printPercentiles(test string) {
	timer := perfTimer(test)
	if timer.Count() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	ps := timer.Percentiles([]float64{0.5, 0.95, 0.99})
	fmt.Printf("%-20sp50=%s\tp95=%s\tp99=%s\n",
		test,
		time.Duration(ps[0]),
		time.Duration(ps[1]),
		time.Duration(ps[2]),
	)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P50", "P95", "P99", "Skipped",
		"Directory", "Codec",
		"Threads", "ValueSizeBytes", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
			nsPerOp = 0
			opsPerSec = 0
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		ps := perfTimer(test).Percentiles([]float64{0.5, 0.95, 0.99})

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			time.Duration(ps[0]).String(),
			time.Duration(ps[1]).String(),
			time.Duration(ps[2]).String(),
			skipped,
			store.Directory(),
			viper.GetString("codec"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfValueSize),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
