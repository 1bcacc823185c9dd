package diskmap_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ValentinKolb/fKV/lib/codec"
	"github.com/ValentinKolb/fKV/lib/diskmap"
	dmtesting "github.com/ValentinKolb/fKV/lib/diskmap/testing"
)

// factoryWithCodec builds a test factory opening a fresh map with the given codec
func factoryWithCodec(c codec.ICodec) dmtesting.MapFactory {
	return func(tb testing.TB) diskmap.IDiskMap[string, int] {
		opts := diskmap.DefaultOptions()
		opts.Codec = c
		m, err := diskmap.OpenNew[string, int](filepath.Join(tb.TempDir(), "store"), diskmap.StringKeys(), opts)
		if err != nil {
			tb.Fatalf("Failed to open map: %v", err)
		}
		return m
	}
}

func Test(t *testing.T) {
	dmtesting.RunDiskMapTests(t, "CBOR", factoryWithCodec(codec.NewCBORCodec()))
	dmtesting.RunDiskMapTests(t, "GOB", factoryWithCodec(codec.NewGOBCodec()))
	dmtesting.RunDiskMapTests(t, "JSON", factoryWithCodec(codec.NewJSONCodec()))
}

func Benchmark(b *testing.B) {
	dmtesting.RunDiskMapBenchmarks(b, "CBOR", factoryWithCodec(codec.NewCBORCodec()))
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

func TestOpenKeepsExistingEntries(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")

	m1, err := diskmap.Open[string, int](dir, diskmap.StringKeys(), nil)
	if err != nil {
		t.Fatalf("Failed to open map: %v", err)
	}
	if err := m1.Insert("a", 1); err != nil {
		t.Fatalf("Unexpected error on Insert: %v", err)
	}

	// a second handle on the same directory sees the entry
	m2, err := diskmap.Open[string, int](dir, diskmap.StringKeys(), nil)
	if err != nil {
		t.Fatalf("Failed to re-open map: %v", err)
	}
	v, err := m2.Get("a")
	if err != nil {
		t.Fatalf("Unexpected error on Get through second handle: %v", err)
	}
	if v != 1 {
		t.Errorf("Expected 1, got %d", v)
	}
}

func TestOpenNewWipesExistingEntries(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")

	m1, err := diskmap.Open[string, int](dir, diskmap.StringKeys(), nil)
	if err != nil {
		t.Fatalf("Failed to open map: %v", err)
	}
	if err := m1.Insert("stale", 1); err != nil {
		t.Fatalf("Unexpected error on Insert: %v", err)
	}

	m2, err := diskmap.OpenNew[string, int](dir, diskmap.StringKeys(), nil)
	if err != nil {
		t.Fatalf("Failed to open fresh map: %v", err)
	}
	n, err := m2.Len()
	if err != nil {
		t.Fatalf("Unexpected error on Len: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected pristine map after OpenNew, got %d entries", n)
	}
}

func TestOpenFailsOnFileCollision(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-directory")
	if err := os.WriteFile(path, []byte("occupied"), 0644); err != nil {
		t.Fatalf("Failed to create collision file: %v", err)
	}

	_, err := diskmap.Open[string, int](path, diskmap.StringKeys(), nil)
	if err == nil {
		t.Fatalf("Expected error when path collides with a file")
	}
	code, ok := diskmap.CodeOf(err)
	if !ok || code != diskmap.ErrCCannotOpenDirectory {
		t.Errorf("Expected CannotOpenDirectory, got %v", err)
	}
}

// --------------------------------------------------------------------------
// Key handling
// --------------------------------------------------------------------------

func TestInvalidKeyRender(t *testing.T) {
	m, err := diskmap.OpenNew[string, int](filepath.Join(t.TempDir(), "store"), diskmap.StringKeys(), nil)
	if err != nil {
		t.Fatalf("Failed to open map: %v", err)
	}

	for _, key := range []string{"", ".", "..", "a/b", "/abs"} {
		err := m.Insert(key, 1)
		code, ok := diskmap.CodeOf(err)
		if !ok || code != diskmap.ErrCCannotOpenFile {
			t.Errorf("Expected CannotOpenFile for key %q, got %v", key, err)
		}

		_, err = m.Get(key)
		code, ok = diskmap.CodeOf(err)
		if !ok || code != diskmap.ErrCCannotOpenFile {
			t.Errorf("Expected CannotOpenFile on Get for key %q, got %v", key, err)
		}
	}

	// nothing must have been created
	n, err := m.Len()
	if err != nil {
		t.Fatalf("Unexpected error on Len: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected empty map after rejected keys, got %d entries", n)
	}
}

// pointKey is a composite key type with a custom codec
type pointKey struct {
	X, Y, Z int
}

type pointKeyCodec struct{}

func (pointKeyCodec) Render(p pointKey) string {
	return fmt.Sprintf("%d_%d_%d", p.X, p.Y, p.Z)
}

func (pointKeyCodec) Parse(name string) (pointKey, error) {
	var p pointKey
	_, err := fmt.Sscanf(name, "%d_%d_%d", &p.X, &p.Y, &p.Z)
	return p, err
}

func TestCompositeKey(t *testing.T) {
	m, err := diskmap.OpenNew[pointKey, []string](filepath.Join(t.TempDir(), "store"), pointKeyCodec{}, nil)
	if err != nil {
		t.Fatalf("Failed to open map: %v", err)
	}

	key := pointKey{X: 1, Y: 1, Z: 3}
	value := []string{"TEST"}

	if err := m.Insert(key, value); err != nil {
		t.Fatalf("Unexpected error on Insert: %v", err)
	}

	got, err := m.Get(key)
	if err != nil {
		t.Fatalf("Unexpected error on Get: %v", err)
	}
	if len(got) != 1 || got[0] != "TEST" {
		t.Errorf("Expected [TEST], got %v", got)
	}

	// the key must parse back from the directory listing
	keys, err := m.GetKeys()
	if err != nil {
		t.Fatalf("Unexpected error on GetKeys: %v", err)
	}
	if len(keys) != 1 || keys[0] != key {
		t.Errorf("Expected keys [%v], got %v", key, keys)
	}

	found, err := m.ContainsKey(key)
	if err != nil {
		t.Fatalf("Unexpected error on ContainsKey: %v", err)
	}
	if !found {
		t.Errorf("Expected ContainsKey to find composite key")
	}
}

func TestUint64Keys(t *testing.T) {
	m, err := diskmap.OpenNew[uint64, string](filepath.Join(t.TempDir(), "store"), diskmap.Uint64Keys(), nil)
	if err != nil {
		t.Fatalf("Failed to open map: %v", err)
	}

	if err := m.Insert(42, "answer"); err != nil {
		t.Fatalf("Unexpected error on Insert: %v", err)
	}

	keys, err := m.GetKeys()
	if err != nil {
		t.Fatalf("Unexpected error on GetKeys: %v", err)
	}
	if len(keys) != 1 || keys[0] != 42 {
		t.Errorf("Expected keys [42], got %v", keys)
	}
}

// --------------------------------------------------------------------------
// Tolerant vs strict enumeration
// --------------------------------------------------------------------------

func TestGetKeysSkipsForeignEntries(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")

	m, err := diskmap.OpenNew[uint64, string](dir, diskmap.Uint64Keys(), nil)
	if err != nil {
		t.Fatalf("Failed to open map: %v", err)
	}
	if err := m.Insert(1, "one"); err != nil {
		t.Fatalf("Unexpected error on Insert: %v", err)
	}

	// a file whose name does not parse as a key
	if err := os.WriteFile(filepath.Join(dir, "not-a-number"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to plant foreign file: %v", err)
	}

	keys, err := m.GetKeys()
	if err != nil {
		t.Fatalf("Expected tolerant GetKeys to succeed, got %v", err)
	}
	if len(keys) != 1 || keys[0] != 1 {
		t.Errorf("Expected keys [1], got %v", keys)
	}
}

func TestGetKeysStrictFailsOnForeignEntries(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")

	opts := diskmap.DefaultOptions()
	opts.StrictKeys = true
	m, err := diskmap.OpenNew[uint64, string](dir, diskmap.Uint64Keys(), opts)
	if err != nil {
		t.Fatalf("Failed to open map: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "not-a-number"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to plant foreign file: %v", err)
	}

	_, err = m.GetKeys()
	code, ok := diskmap.CodeOf(err)
	if !ok || code != diskmap.ErrCCannotOpenDirectory {
		t.Errorf("Expected CannotOpenDirectory in strict mode, got %v", err)
	}
}

// --------------------------------------------------------------------------
// Corruption handling
// --------------------------------------------------------------------------

func TestGetFailsOnCorruptEntry(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")

	m, err := diskmap.OpenNew[string, pointKey](dir, diskmap.StringKeys(), nil)
	if err != nil {
		t.Fatalf("Failed to open map: %v", err)
	}
	if err := m.Insert("a", pointKey{X: 1}); err != nil {
		t.Fatalf("Unexpected error on Insert: %v", err)
	}

	// corrupt the entry behind the map's back
	if err := os.WriteFile(filepath.Join(dir, "a"), []byte{0xde, 0xad}, 0644); err != nil {
		t.Fatalf("Failed to corrupt entry: %v", err)
	}

	_, err = m.Get("a")
	code, ok := diskmap.CodeOf(err)
	if !ok || code != diskmap.ErrCCannotReadFromFile {
		t.Errorf("Expected CannotReadFromFile for corrupt entry, got %v", err)
	}
}

// --------------------------------------------------------------------------
// Value sizes
// --------------------------------------------------------------------------

func TestValueSizeExtremes(t *testing.T) {
	m, err := diskmap.OpenNew[string, string](filepath.Join(t.TempDir(), "store"), diskmap.StringKeys(), nil)
	if err != nil {
		t.Fatalf("Failed to open map: %v", err)
	}

	// empty value
	if err := m.Insert("empty", ""); err != nil {
		t.Fatalf("Unexpected error on Insert: %v", err)
	}
	v, err := m.Get("empty")
	if err != nil {
		t.Fatalf("Unexpected error on Get: %v", err)
	}
	if v != "" {
		t.Errorf("Expected empty string, got %q", v)
	}

	// large value (1 MiB)
	large := strings.Repeat("x", 1<<20)
	if err := m.Insert("large", large); err != nil {
		t.Fatalf("Unexpected error on Insert: %v", err)
	}
	v, err = m.Get("large")
	if err != nil {
		t.Fatalf("Unexpected error on Get: %v", err)
	}
	if v != large {
		t.Errorf("Large value did not round-trip (got %d bytes)", len(v))
	}

	// shrinking a large value must not leave stale bytes behind
	if err := m.Overwrite("large", "small"); err != nil {
		t.Fatalf("Unexpected error on Overwrite: %v", err)
	}
	v, err = m.Get("large")
	if err != nil {
		t.Fatalf("Unexpected error on Get after shrinking Overwrite: %v", err)
	}
	if v != "small" {
		t.Errorf("Expected %q after shrinking Overwrite, got %d bytes", "small", len(v))
	}
}

// --------------------------------------------------------------------------
// Introspection
// --------------------------------------------------------------------------

func TestGetInfo(t *testing.T) {
	m, err := diskmap.OpenNew[string, string](filepath.Join(t.TempDir(), "store"), diskmap.StringKeys(), nil)
	if err != nil {
		t.Fatalf("Failed to open map: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := m.Insert(fmt.Sprintf("key-%d", i), "some value content"); err != nil {
			t.Fatalf("Unexpected error on Insert: %v", err)
		}
	}

	info, err := m.GetInfo()
	if err != nil {
		t.Fatalf("Unexpected error on GetInfo: %v", err)
	}

	if info.Entries != 5 {
		t.Errorf("Expected 5 entries, got %d", info.Entries)
	}
	if info.SizeBytes <= 0 {
		t.Errorf("Expected positive size, got %d", info.SizeBytes)
	}
	if info.Codec != "cbor" {
		t.Errorf("Expected codec cbor, got %s", info.Codec)
	}
	if info.Directory != m.Directory() {
		t.Errorf("Expected directory %s, got %s", m.Directory(), info.Directory)
	}
	if info.ValueSizes.Min != info.ValueSizes.Max {
		t.Errorf("Expected uniform value sizes, got min=%f max=%f",
			info.ValueSizes.Min, info.ValueSizes.Max)
	}
}
