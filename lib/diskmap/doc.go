// Package diskmap implements a persistent key-value map backed by a plain
// directory: every entry is one file whose name is the rendered key and
// whose content is the codec-encoded value. There is no server process, no
// index and no manifest - the directory is the database, and any number of
// threads or processes can operate on it concurrently using advisory file
// locks for per-entry coordination.
//
// The package focuses on:
//   - One file per entry with a pure key-to-path derivation
//   - Advisory locking (exclusive for writes, shared for reads) per entry
//   - A flat, typed error taxonomy distinguishing "entry absent" from
//     "lock contention" from "encoding problem" from "storage unavailable"
//   - Pluggable key rendering (KeyCodec) and value encoding (codec.ICodec)
//
// Key Components:
//
//   - IDiskMap Interface: The generic public API. Handles are bound to a
//     directory path and hold no other state; duplicating a handle
//     duplicates access, not storage. Open creates the directory if absent,
//     OpenNew wipes it first to guarantee a pristine map.
//
//   - KeyCodec: Renders keys to file names and parses listed file names back
//     into keys. Render must be injective and must only produce valid single
//     path components; Parse is only ever invoked on names produced by
//     Render. Built-in codecs cover string and uint64 keys; composite keys
//     supply their own codec.
//
//   - Error System: Every public operation returns nil or a *Error carrying
//     one of seven ErrCode values plus the underlying cause (available via
//     errors.Unwrap). No operation panics as part of its contract, and lock
//     failures are always reported as ErrCCannotGetLock rather than
//     terminating the caller.
//
// Concurrency Model:
//
//	Every operation is a synchronous, blocking sequence of file-system
//	calls; there is no in-process scheduler, cancellation or timeout.
//	Entries with different keys can be mutated fully concurrently with no
//	coordination. For a single key, Insert, Alter and Overwrite hold an
//	exclusive advisory lock for their whole write span (Alter for the whole
//	read-modify-write span, so concurrent Alter calls on one key are
//	serialized), and Get holds a shared lock while reading. Delete takes no
//	lock: it unlinks the name, and in-flight operations on the open file
//	complete against the unlinked inode. The locks are advisory - an
//	external writer that bypasses the locking convention voids all
//	guarantees.
//
//	Enumeration-derived helpers (Entries, Clear, AlterWithDefault) are
//	best-effort compositions, not transactions: a mid-sequence failure
//	surfaces immediately and can leave the map partially processed.
//
// Usage Example:
//
//	// Open a fresh map with string keys and CBOR-encoded int values
//	m, err := diskmap.OpenNew[string, int]("/tmp/scores", diskmap.StringKeys(), nil)
//	if err != nil { ... }
//
//	_ = m.Insert("alice", 1)
//	_ = m.Alter("alice", func(v int) int { return v + 1 })
//	score, err := m.Get("alice") // 2
//
// Durability Considerations:
//
//	The map offers no write-ahead log and no crash-consistency guarantee
//	beyond what the underlying file system provides for single-file writes.
//	Writes are not synced explicitly; a crash can lose or truncate the
//	entry written last. Suitable for local tool state, caches of derived
//	data and inter-process hand-off, not for data that must survive power
//	failure.
package diskmap
