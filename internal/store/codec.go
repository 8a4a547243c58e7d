package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
)

// Encoders are safe for concurrent EncodeAll/DecodeAll calls.
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// encode gob-encodes v and compresses the result.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}
	return zstdEncoder.EncodeAll(buf.Bytes(), nil), nil
}

// decode reverses encode into out, which must be a pointer.
func decode(data []byte, out any) error {
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("zstd decode: %w", err)
	}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(out); err != nil {
		return fmt.Errorf("gob decode: %w", err)
	}
	return nil
}

// Checksum is the hex xxhash64 of an artifact file.
func Checksum(data []byte) string {
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}
