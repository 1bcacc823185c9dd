package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// NewCBORCodec creates a new codec using the CBOR binary format (RFC 8949).
// CBOR is self-describing and language-neutral: values written by this codec
// can be decoded by any compliant CBOR implementation. This is the default
// codec for disk maps.
func NewCBORCodec() ICodec {
	// Core deterministic encoding so the same value always produces the
	// same bytes, independent of map iteration order.
	encMode, _ := cbor.CoreDetEncOptions().EncMode()
	return &cborCodecImpl{enc: encMode}
}

// cborCodecImpl implements the ICodec interface using CBOR encoding
type cborCodecImpl struct {
	enc cbor.EncMode
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (c cborCodecImpl) Marshal(v any) ([]byte, error) {
	return c.enc.Marshal(v)
}

func (c cborCodecImpl) Unmarshal(b []byte, v any) error {
	return cbor.Unmarshal(b, v)
}

func (c cborCodecImpl) Name() string {
	return "cbor"
}
