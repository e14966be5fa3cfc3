package snapshot

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/fxamacker/cbor/v2"
)

// maxDecodedSize caps the decompressed size of a stored record.
const maxDecodedSize = 256 * 1024 * 1024 // 256 MB

// Record is one saved typed array.
type Record struct {
	Kind       string `cbor:"1,keyasint"` // constructor name, e.g. "Float64Array"
	ByteLength int    `cbor:"2,keyasint"`
	Order      string `cbor:"3,keyasint"` // "little" or "big"
	Data       []byte `cbor:"4,keyasint"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// encode serializes r to canonical CBOR and compresses it with brotli.
func encode(r *Record) ([]byte, error) {
	raw, err := cborEncMode.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("compressing record: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compressing record: %w", err)
	}
	return buf.Bytes(), nil
}

// decode reverses encode.
func decode(payload []byte) (*Record, error) {
	r := brotli.NewReader(bytes.NewReader(payload))
	raw, err := io.ReadAll(io.LimitReader(r, maxDecodedSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing record: %w", err)
	}
	if len(raw) > maxDecodedSize {
		return nil, fmt.Errorf("decompressing record: output exceeds maximum allowed size")
	}
	var rec Record
	if err := cbor.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	if rec.ByteLength != len(rec.Data) {
		return nil, fmt.Errorf("decoding record: byte length %d does not match %d data bytes", rec.ByteLength, len(rec.Data))
	}
	return &rec, nil
}
