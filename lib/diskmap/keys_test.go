package diskmap

import (
	"testing"
)

func TestStringKeyCodec(t *testing.T) {
	keys := StringKeys()

	for _, key := range []string{"a", "some-key", "with space", "42"} {
		name := keys.Render(key)
		if name != key {
			t.Errorf("Expected render of %q to be itself, got %q", key, name)
		}

		parsed, err := keys.Parse(name)
		if err != nil {
			t.Errorf("Unexpected error parsing %q: %v", name, err)
		}
		if parsed != key {
			t.Errorf("Round trip mismatch: %q -> %q", key, parsed)
		}
	}
}

func TestUint64KeyCodec(t *testing.T) {
	keys := Uint64Keys()

	for _, key := range []uint64{0, 1, 42, 1 << 63} {
		name := keys.Render(key)

		parsed, err := keys.Parse(name)
		if err != nil {
			t.Errorf("Unexpected error parsing %q: %v", name, err)
		}
		if parsed != key {
			t.Errorf("Round trip mismatch: %d -> %d", key, parsed)
		}
	}

	// names that did not originate from Render must report an error
	for _, name := range []string{"", "abc", "-1", "1.5"} {
		if _, err := keys.Parse(name); err == nil {
			t.Errorf("Expected parse error for %q", name)
		}
	}
}
