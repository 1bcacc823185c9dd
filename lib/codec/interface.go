package codec

// ICodec is the interface for all value codecs used by the disk map.
// A codec must produce a stable, round-trippable encoding: any value
// written with Marshal must decode back to an equal value with Unmarshal.
type ICodec interface {
	// Marshal encodes a value into a byte array
	// It returns the encoded byte array and an error if any
	Marshal(v any) ([]byte, error)
	// Unmarshal decodes a byte array into the value pointed to by v
	// It takes a byte array and a pointer to the target value as parameters
	// It returns an error if any
	Unmarshal(b []byte, v any) error
	// Name returns the codec name (used for configuration and logging)
	Name() string
}
