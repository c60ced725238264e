package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Compression tells how a stored payload is encoded.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

// DefaultCompressThreshold is the JSON size from which payloads are compressed.
const DefaultCompressThreshold = 10 * 1024

// SnapshotCodec serializes values to JSON and compresses large payloads with
// zstd. It is safe for concurrent use.
type SnapshotCodec struct {
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	threshold int
}

// NewSnapshotCodec creates a codec. threshold <= 0 means DefaultCompressThreshold.
func NewSnapshotCodec(threshold int) (*SnapshotCodec, error) {
	if threshold <= 0 {
		threshold = DefaultCompressThreshold
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &SnapshotCodec{encoder: encoder, decoder: decoder, threshold: threshold}, nil
}

// Encode returns the payload and how it was encoded.
func (c *SnapshotCodec) Encode(v any) ([]byte, Compression, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if len(raw) <= c.threshold {
		return raw, CompressionNone, nil
	}
	return c.encoder.EncodeAll(raw, make([]byte, 0, len(raw)/4)), CompressionZstd, nil
}

// Decode reverses Encode into v.
func (c *SnapshotCodec) Decode(data []byte, comp Compression, v any) error {
	switch comp {
	case CompressionNone, "":
	case CompressionZstd:
		raw, err := c.decoder.DecodeAll(data, nil)
		if err != nil {
			return fmt.Errorf("decompress snapshot: %w", err)
		}
		data = raw
	default:
		return fmt.Errorf("unknown snapshot compression %q", comp)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return nil
}
