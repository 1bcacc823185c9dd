package diskmap

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ValentinKolb/fKV/lib/codec"
	"github.com/ValentinKolb/fKV/lib/logger"
	"github.com/gofrs/flock"
)

var dmLog = logger.GetLogger("diskmap")

// --------------------------------------------------------------------------
// Core disk map structure
// --------------------------------------------------------------------------

// diskMapImpl implements IDiskMap. It holds no entry state, only the
// directory path and configuration, so a handle can be freely copied and
// shared. All serialization of concurrent access to the same entry is
// delegated to OS-level advisory locks on that entry's file; these are only
// honored by participants using the same locking discipline.
type diskMapImpl[K comparable, V any] struct {
	directory string
	keys      KeyCodec[K]
	opts      Options
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// Open creates the directory if absent (including parents) and returns a
// handle bound to it. Existing entries are left untouched.
func Open[K comparable, V any](directory string, keys KeyCodec[K], opts *Options) (IDiskMap[K, V], error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Codec == nil {
		opts.Codec = codec.NewCBORCodec()
	}
	if opts.FileMode == 0 {
		opts.FileMode = 0644
	}
	if opts.DirMode == 0 {
		opts.DirMode = 0755
	}

	if err := os.MkdirAll(directory, opts.DirMode); err != nil {
		return nil, NewError(ErrCCannotOpenDirectory, fmt.Sprintf("create directory %s", directory), err)
	}

	return &diskMapImpl[K, V]{
		directory: directory,
		keys:      keys,
		opts:      *opts,
	}, nil
}

// OpenNew wipes any existing directory at the path and then performs Open,
// guaranteeing a pristine map. All contents are destroyed, including entries
// concurrently written through other handles. An absent directory is not a
// failure; a failed wipe is surfaced as ErrCCannotOpenDirectory instead of
// silently proceeding into a partially populated map.
func OpenNew[K comparable, V any](directory string, keys KeyCodec[K], opts *Options) (IDiskMap[K, V], error) {
	if err := os.RemoveAll(directory); err != nil {
		return nil, NewError(ErrCCannotOpenDirectory, fmt.Sprintf("wipe directory %s", directory), err)
	}
	return Open[K, V](directory, keys, opts)
}

// --------------------------------------------------------------------------
// Path Derivation
// --------------------------------------------------------------------------

// filename derives the entry path for a key. The derivation is pure: the
// same key always maps to the same path. Rendered names that cannot serve
// as a single path component are rejected here instead of producing
// operations on the wrong path.
func (m *diskMapImpl[K, V]) filename(key K) (string, error) {
	name := m.keys.Render(key)
	if name == "" || name == "." || name == ".." ||
		strings.ContainsRune(name, os.PathSeparator) || strings.ContainsAny(name, "/\x00") {
		return "", NewError(ErrCCannotOpenFile, fmt.Sprintf("key renders to invalid file name %q", name), nil)
	}
	return filepath.Join(m.directory, name), nil
}

// --------------------------------------------------------------------------
// Interface Methods - Single-Entry Operations (docu see interface.go)
// --------------------------------------------------------------------------

func (m *diskMapImpl[K, V]) Insert(key K, value V) error {
	countOp("insert")

	fname, err := m.filename(key)
	if err != nil {
		countErr("insert")
		return err
	}

	// Create-only semantics: an existing entry must not be overwritten
	f, err := os.OpenFile(fname, os.O_WRONLY|os.O_CREATE|os.O_EXCL, m.opts.FileMode)
	if err != nil {
		countErr("insert")
		return NewError(ErrCCannotOpenFile, fmt.Sprintf("create entry %q", m.keys.Render(key)), err)
	}
	defer f.Close()

	fl := flock.New(fname)
	if err := fl.Lock(); err != nil {
		countErr("insert")
		return NewError(ErrCCannotGetLock, fmt.Sprintf("lock entry %q exclusively", m.keys.Render(key)), err)
	}
	defer fl.Unlock()

	data, err := m.opts.Codec.Marshal(value)
	if err != nil {
		countErr("insert")
		return NewError(ErrCCannotInsert, fmt.Sprintf("encode value for entry %q", m.keys.Render(key)), err)
	}
	if _, err := f.Write(data); err != nil {
		countErr("insert")
		return NewError(ErrCCannotInsert, fmt.Sprintf("write entry %q", m.keys.Render(key)), err)
	}
	return nil
}

func (m *diskMapImpl[K, V]) Get(key K) (V, error) {
	countOp("get")
	var zero V

	fname, err := m.filename(key)
	if err != nil {
		countErr("get")
		return zero, err
	}

	f, err := os.Open(fname)
	if err != nil {
		countErr("get")
		return zero, NewError(ErrCCannotOpenFile, fmt.Sprintf("open entry %q", m.keys.Render(key)), err)
	}
	defer f.Close()

	fl := flock.New(fname)
	if err := fl.RLock(); err != nil {
		countErr("get")
		return zero, NewError(ErrCCannotGetLock, fmt.Sprintf("lock entry %q shared", m.keys.Render(key)), err)
	}
	defer fl.Unlock()

	data, err := io.ReadAll(f)
	if err != nil {
		countErr("get")
		return zero, NewError(ErrCCannotReadFromFile, fmt.Sprintf("read entry %q", m.keys.Render(key)), err)
	}

	var value V
	if err := m.opts.Codec.Unmarshal(data, &value); err != nil {
		countErr("get")
		return zero, NewError(ErrCCannotReadFromFile, fmt.Sprintf("decode entry %q", m.keys.Render(key)), err)
	}
	return value, nil
}

func (m *diskMapImpl[K, V]) Alter(key K, fn func(V) V) error {
	countOp("alter")
	return m.rewrite(key, "alter", true, fn)
}

func (m *diskMapImpl[K, V]) Overwrite(key K, value V) error {
	countOp("overwrite")
	return m.rewrite(key, "overwrite", false, func(V) V { return value })
}

// rewrite opens an existing entry read-write and replaces its content with
// the encoding of fn(old), holding one exclusive lock across the whole
// read-modify-write span. When read is false the old value is not decoded
// and fn receives the zero value; this turns the read-modify-write into a
// blind write while keeping the same lock discipline.
func (m *diskMapImpl[K, V]) rewrite(key K, op string, read bool, fn func(V) V) error {
	fname, err := m.filename(key)
	if err != nil {
		countErr(op)
		return err
	}

	// The entry must already exist, Insert is the only creation path
	f, err := os.OpenFile(fname, os.O_RDWR, 0)
	if err != nil {
		countErr(op)
		return NewError(ErrCCannotOpenFile, fmt.Sprintf("open entry %q", m.keys.Render(key)), err)
	}
	defer f.Close()

	fl := flock.New(fname)
	if err := fl.Lock(); err != nil {
		countErr(op)
		return NewError(ErrCCannotGetLock, fmt.Sprintf("lock entry %q exclusively", m.keys.Render(key)), err)
	}
	defer fl.Unlock()

	var old V
	if read {
		data, err := io.ReadAll(f)
		if err != nil {
			countErr(op)
			return NewError(ErrCCannotReadFromFile, fmt.Sprintf("read entry %q", m.keys.Render(key)), err)
		}
		if err := m.opts.Codec.Unmarshal(data, &old); err != nil {
			countErr(op)
			return NewError(ErrCCannotReadFromFile, fmt.Sprintf("decode entry %q", m.keys.Render(key)), err)
		}
	}

	data, err := m.opts.Codec.Marshal(fn(old))
	if err != nil {
		countErr(op)
		return NewError(ErrCCannotAlterFile, fmt.Sprintf("encode value for entry %q", m.keys.Render(key)), err)
	}

	if err := f.Truncate(0); err != nil {
		countErr(op)
		return NewError(ErrCCannotAlterFile, fmt.Sprintf("truncate entry %q", m.keys.Render(key)), err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		countErr(op)
		return NewError(ErrCCannotAlterFile, fmt.Sprintf("rewind entry %q", m.keys.Render(key)), err)
	}
	if _, err := f.Write(data); err != nil {
		countErr(op)
		return NewError(ErrCCannotAlterFile, fmt.Sprintf("write entry %q", m.keys.Render(key)), err)
	}
	return nil
}

func (m *diskMapImpl[K, V]) Delete(key K) error {
	countOp("delete")

	fname, err := m.filename(key)
	if err != nil {
		countErr("delete")
		return err
	}

	// No lock is taken before removal: unlinking removes the name, a
	// concurrent reader or writer holding the file open still completes
	// against the unlinked inode.
	if err := os.Remove(fname); err != nil {
		countErr("delete")
		return NewError(ErrCCannotDeleteFile, fmt.Sprintf("delete entry %q", m.keys.Render(key)), err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods - Enumeration-Derived Operations (docu see interface.go)
// --------------------------------------------------------------------------

func (m *diskMapImpl[K, V]) GetKeys() ([]K, error) {
	countOp("get_keys")

	dirEntries, err := os.ReadDir(m.directory)
	if err != nil {
		countErr("get_keys")
		return nil, NewError(ErrCCannotOpenDirectory, fmt.Sprintf("list directory %s", m.directory), err)
	}

	keys := make([]K, 0, len(dirEntries))
	for _, e := range dirEntries {
		if !e.Type().IsRegular() {
			if m.opts.StrictKeys {
				countErr("get_keys")
				return nil, NewError(ErrCCannotOpenDirectory, fmt.Sprintf("unexpected non-regular entry %q in %s", e.Name(), m.directory), nil)
			}
			dmLog.Warningf("skipping non-regular entry %q in %s", e.Name(), m.directory)
			continue
		}
		key, err := m.keys.Parse(e.Name())
		if err != nil {
			if m.opts.StrictKeys {
				countErr("get_keys")
				return nil, NewError(ErrCCannotOpenDirectory, fmt.Sprintf("undecodable entry name %q in %s", e.Name(), m.directory), err)
			}
			dmLog.Warningf("skipping undecodable entry %q in %s: %v", e.Name(), m.directory, err)
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (m *diskMapImpl[K, V]) ContainsKey(key K) (bool, error) {
	keys, err := m.GetKeys()
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		if k == key {
			return true, nil
		}
	}
	return false, nil
}

func (m *diskMapImpl[K, V]) Len() (int, error) {
	keys, err := m.GetKeys()
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (m *diskMapImpl[K, V]) Entries() ([]Entry[K, V], error) {
	keys, err := m.GetKeys()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry[K, V], 0, len(keys))
	for _, key := range keys {
		value, err := m.Get(key)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry[K, V]{Key: key, Value: value})
	}
	return entries, nil
}

func (m *diskMapImpl[K, V]) Clear() error {
	keys, err := m.GetKeys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := m.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func (m *diskMapImpl[K, V]) AlterWithDefault(key K, def V, fn func(V) V) error {
	// Attempt the insert unconditionally and treat "already exists" as
	// success. A ContainsKey-then-Insert sequence would race with
	// concurrent inserters of the same key; this way a lost insert race
	// degrades into a plain Alter.
	if err := m.Insert(key, def); err != nil && !errors.Is(err, fs.ErrExist) {
		return err
	}
	return m.Alter(key, fn)
}

// --------------------------------------------------------------------------
// Interface Methods - Introspection (docu see interface.go)
// --------------------------------------------------------------------------

func (m *diskMapImpl[K, V]) GetInfo() (StoreInfo, error) {
	countOp("info")

	dirEntries, err := os.ReadDir(m.directory)
	if err != nil {
		countErr("info")
		return StoreInfo{}, NewError(ErrCCannotOpenDirectory, fmt.Sprintf("list directory %s", m.directory), err)
	}

	var (
		total int64
		sizes []float64
		count int
	)
	for _, e := range dirEntries {
		if !e.Type().IsRegular() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			// entry vanished between listing and stat
			continue
		}
		total += fi.Size()
		sizes = append(sizes, float64(fi.Size()))
		count++
	}

	return StoreInfo{
		Directory:  m.directory,
		Entries:    count,
		SizeBytes:  total,
		ValueSizes: NewStats(sizes),
		Codec:      m.opts.Codec.Name(),
	}, nil
}

func (m *diskMapImpl[K, V]) Directory() string {
	return m.directory
}
