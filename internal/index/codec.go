package index

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec selects how the payload artifact body is compressed.
type Codec uint8

const (
	CodecNone Codec = 0
	CodecZstd Codec = 1
	CodecLZ4  Codec = 2
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// ParseCodec maps a config value to a Codec. The empty string means none.
func ParseCodec(s string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CodecNone, nil
	case "zstd":
		return CodecZstd, nil
	case "lz4":
		return CodecLZ4, nil
	default:
		return CodecNone, fmt.Errorf("unknown compression codec %q", s)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxPayloadBytes))
}

// lz4MaxRatio is the largest expansion an LZ4 block can encode.
const lz4MaxRatio = 255

// checkRawLen rejects a declared decoded size that the codec cannot produce
// from bodyLen bytes.
func checkRawLen(c Codec, rawLen, bodyLen uint64) error {
	if rawLen > maxPayloadBytes {
		return fmt.Errorf("declared payload size %d exceeds limit %d", rawLen, uint64(maxPayloadBytes))
	}
	switch c {
	case CodecNone:
		if rawLen != bodyLen {
			return fmt.Errorf("declared payload size %d differs from stored size %d", rawLen, bodyLen)
		}
	case CodecLZ4:
		if rawLen > bodyLen*lz4MaxRatio+16 {
			return fmt.Errorf("declared payload size %d is impossible for %d lz4 bytes", rawLen, bodyLen)
		}
	case CodecZstd:
		if bodyLen == 0 && rawLen > 0 {
			return errors.New("empty zstd body for non-empty payload")
		}
	default:
		return fmt.Errorf("unsupported codec %s", c)
	}
	return nil
}

// compress returns the encoded body. LZ4 may report incompressible input, in
// which case the raw bytes are stored and the returned codec is CodecNone.
func compress(c Codec, raw []byte) ([]byte, Codec, error) {
	if len(raw) == 0 {
		return raw, CodecNone, nil
	}
	switch c {
	case CodecNone:
		return raw, CodecNone, nil
	case CodecZstd:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, c, err
		}
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(raw, nil), CodecZstd, nil
	case CodecLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, dst, nil)
		if err != nil {
			return nil, c, err
		}
		if n == 0 {
			return raw, CodecNone, nil
		}
		return dst[:n], CodecLZ4, nil
	default:
		return nil, c, fmt.Errorf("unsupported codec %s", c)
	}
}

func decompress(c Codec, body []byte, rawLen int) ([]byte, error) {
	switch c {
	case CodecNone:
		if len(body) != rawLen {
			return nil, errors.New("stored body length mismatch")
		}
		return body, nil
	case CodecZstd:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)
		// Capacity is capped by the body size; DecodeAll grows the slice as needed.
		out, err := dec.DecodeAll(body, make([]byte, 0, min(rawLen, len(body)*8)))
		if err != nil {
			return nil, err
		}
		if len(out) != rawLen {
			return nil, errors.New("decompressed size mismatch")
		}
		return out, nil
	case CodecLZ4:
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, err
		}
		if n != rawLen {
			return nil, errors.New("decompressed size mismatch")
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported codec %s", c)
	}
}
