// Package cmd implements the command-line interface for the fKV file-backed
// key-value map. It provides a hierarchical command structure with operations
// for inspecting and modifying a map directory.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for key-value map operations (get, insert, del, etc.)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See fkv -help for a list of all commands.
package cmd
