package diskmap

import (
	"strconv"
)

// --------------------------------------------------------------------------
// Built-in Key Codecs
// --------------------------------------------------------------------------

// StringKeys returns a KeyCodec for plain string keys. The rendered form is
// the key itself, so the caller must only use keys that are valid file
// names (no path separators, not empty, not "." or "..").
func StringKeys() KeyCodec[string] {
	return stringKeyCodec{}
}

type stringKeyCodec struct{}

func (stringKeyCodec) Render(key string) string {
	return key
}

func (stringKeyCodec) Parse(name string) (string, error) {
	return name, nil
}

// Uint64Keys returns a KeyCodec for uint64 keys rendered in decimal.
func Uint64Keys() KeyCodec[uint64] {
	return uint64KeyCodec{}
}

type uint64KeyCodec struct{}

func (uint64KeyCodec) Render(key uint64) string {
	return strconv.FormatUint(key, 10)
}

func (uint64KeyCodec) Parse(name string) (uint64, error) {
	return strconv.ParseUint(name, 10, 64)
}
