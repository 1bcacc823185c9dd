package diskmap

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// Operation and error counters, registered in the default metrics set.
// Embedding applications can publish them via metrics.WritePrometheus.

// countOp increments the call counter for an operation
func countOp(op string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`fkv_diskmap_ops_total{op=%q}`, op)).Inc()
}

// countErr increments the error counter for an operation
func countErr(op string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`fkv_diskmap_errors_total{op=%q}`, op)).Inc()
}
