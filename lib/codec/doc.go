// Package codec provides the value encoding layer for the disk map. Every
// value stored in a map is serialized to a byte array by an ICodec
// implementation before it is written to its entry file, and deserialized
// again on read.
//
// The package focuses on:
//   - A minimal interface (ICodec) shared by all implementations
//   - A self-describing, language-neutral default format (CBOR)
//   - Alternative formats for Go-only deployments (gob) and debugging (json)
//
// Implementations:
//
//   - CBOR (NewCBORCodec): The default codec. Encodes values in the Concise
//     Binary Object Representation (RFC 8949) with deterministic encoding
//     options, so equal values always produce identical bytes. Entry files
//     written with this codec can be read by any CBOR implementation in any
//     language.
//
//   - GOB (NewGOBCodec): Uses Go's native binary gob format. Compact and
//     fast, but the resulting files can only be decoded by Go programs that
//     know the value type.
//
//   - JSON (NewJSONCodec): Stores values as JSON text. The least compact
//     option, but entry files can be inspected and edited with standard
//     tools, which is convenient during development.
//
// All codecs are stateless and safe for concurrent use. Decoding a value
// that was written for a different logical type returns an error rather
// than silently producing a corrupt value, within the limits of the chosen
// format (json in particular is lenient about numeric types).
package codec
