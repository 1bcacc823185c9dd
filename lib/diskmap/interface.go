package diskmap

import (
	"errors"
	"fmt"
	"os"

	"github.com/ValentinKolb/fKV/lib/codec"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Entry pairs a key with its current value.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// IDiskMap is the generic interface for a directory-backed key-value map.
// Every entry is persisted as a single file named after the key's rendered
// string form; the file content is the value encoded by the configured codec.
// All write operations return only an error (nil on success), while read
// operations return the requested data along with an error (nil on success).
//
// A handle holds no entry state, only the directory path and configuration.
// It is cheap to copy and safe to share across goroutines; any number of
// handles (also from other processes) may operate on the same directory
// concurrently, serialized per entry by advisory file locks.
type IDiskMap[K comparable, V any] interface {
	// Insert creates a new entry. It is create-only: inserting an existing
	// key fails with ErrCCannotOpenFile, there is no silent overwrite.
	Insert(key K, value V) (err error)
	// Get returns the current value for a key.
	// A missing entry fails with ErrCCannotOpenFile.
	Get(key K) (value V, err error)
	// Overwrite unconditionally replaces the value of an existing entry.
	// The entry must exist; a missing entry fails with ErrCCannotOpenFile.
	Overwrite(key K, value V) (err error)
	// Alter replaces the value of an existing entry with fn(old). The whole
	// read-modify-write span is guarded by one exclusive lock, so concurrent
	// Alter calls on the same key are serialized.
	Alter(key K, fn func(V) V) (err error)
	// AlterWithDefault inserts def if the key does not exist (a concurrent
	// insert of the same key is treated as success) and then applies Alter.
	AlterWithDefault(key K, def V, fn func(V) V) (err error)
	// Delete removes an entry. Deleting a missing key fails with
	// ErrCCannotDeleteFile.
	Delete(key K) (err error)
	// GetKeys returns all keys in file-system enumeration order (unspecified,
	// neither sorted nor insertion-ordered).
	GetKeys() (keys []K, err error)
	// ContainsKey returns whether a key exists. O(n) in the entry count.
	ContainsKey(key K) (found bool, err error)
	// Len returns the number of entries.
	Len() (n int, err error)
	// Entries materializes every key with its current value. The first
	// failing read aborts the call.
	Entries() (entries []Entry[K, V], err error)
	// Clear deletes every entry. The first failing delete aborts the call,
	// possibly leaving the map partially cleared.
	Clear() (err error)
	// GetInfo returns metadata about the map directory.
	// It is a point-in-time snapshot, not a consistent view.
	GetInfo() (info StoreInfo, err error)
	// Directory returns the directory path this handle is bound to.
	Directory() (dir string)
}

// KeyCodec converts keys to file names and back. Render must be total,
// deterministic and injective - two distinct keys must never render to the
// same string, or they silently alias the same entry. Rendered strings must
// not contain path separators or other characters illegal in file names.
// Parse must invert Render for every string Render produces; it is only
// ever called on directory-listed file names.
type KeyCodec[K comparable] interface {
	Render(key K) string
	Parse(name string) (K, error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps an error code (of type ErrCode),
// an error message and the underlying cause (may be nil).
type Error struct {
	Code ErrCode // The error code
	Msg  string  // The error message
	Err  error   // The underlying cause
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("DiskMapError (code %s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("DiskMapError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new DiskMapError with the given code, message and cause.
func NewError(code ErrCode, msg string, cause error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  cause,
	}
}

// CodeOf extracts the ErrCode from an error returned by a disk map.
// The boolean return value indicates whether err carries a code.
func CodeOf(err error) (ErrCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// --------------------------------------------------------------------------
// Error Codes
// --------------------------------------------------------------------------

type ErrCode uint64

const (
	ErrCCannotOpenDirectory ErrCode = iota // 0: Directory cannot be created, wiped or listed.
	ErrCCannotOpenFile                     // 1: Entry file absent, already present (on Insert) or inaccessible.
	ErrCCannotReadFromFile                 // 2: Entry content malformed, truncated or of the wrong type.
	ErrCCannotInsert                       // 3: Encoding or writing a new entry failed.
	ErrCCannotAlterFile                    // 4: Encoding or rewriting an existing entry failed.
	ErrCCannotDeleteFile                   // 5: Entry removal failed.
	ErrCCannotGetLock                      // 6: Advisory lock acquisition failed.
)

func (c ErrCode) String() string {
	switch c {
	case ErrCCannotOpenDirectory:
		return "CannotOpenDirectory"
	case ErrCCannotOpenFile:
		return "CannotOpenFile"
	case ErrCCannotReadFromFile:
		return "CannotReadFromFile"
	case ErrCCannotInsert:
		return "CannotInsert"
	case ErrCCannotAlterFile:
		return "CannotAlterFile"
	case ErrCCannotDeleteFile:
		return "CannotDeleteFile"
	case ErrCCannotGetLock:
		return "CannotGetLock"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Options configures a disk map handle during Open/OpenNew
type Options struct {
	Codec      codec.ICodec // Value encoding (nil = CBOR)
	FileMode   os.FileMode  // Permissions for entry files (0 = 0644)
	DirMode    os.FileMode  // Permissions for created directories (0 = 0755)
	StrictKeys bool         // Fail GetKeys on undecodable entry names instead of skipping them
}

// DefaultOptions returns the default disk map options
func DefaultOptions() *Options {
	return &Options{
		Codec:      codec.NewCBORCodec(),
		FileMode:   0644,
		DirMode:    0755,
		StrictKeys: false,
	}
}

// StoreInfo describes the current on-disk state of a map directory.
type StoreInfo struct {
	Directory  string `json:"directory"`
	Entries    int    `json:"entries"`
	SizeBytes  int64  `json:"size_bytes"`
	ValueSizes Stats  `json:"value_sizes"`
	Codec      string `json:"codec"`
}
