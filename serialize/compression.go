package serialize

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/wippyai/rbridge/errors"
)

// Compression selects the block codec.
type Compression uint8

const (
	None Compression = 0
	LZ4  Compression = 1
	Zstd Compression = 2
)

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression accepts "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return None, errors.InvalidInput(errors.PhaseSerialize, "unknown compression "+s)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(maxBlockBytes),
		zstd.WithDecodeAllCapLimit(true))
	return dec
}

// Block format: [uncompressed uint32][compressed uint32][data]. A
// compressed size of 0 marks a block stored as is.
const blockHeaderSize = 8

// maxBlockBytes bounds the decoded size of one block.
const maxBlockBytes = BlockElements * 8

func compressBlock(data []byte, c Compression) ([]byte, error) {
	var compressed []byte
	switch c {
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		compressed = buf[:n]
	case Zstd:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	}

	// Store blocks that do not shrink by at least 10%.
	stored := len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9
	if stored {
		compressed = data
	}

	out := make([]byte, blockHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	if !stored {
		binary.LittleEndian.PutUint32(out[4:], uint32(len(compressed)))
	}
	copy(out[blockHeaderSize:], compressed)
	return out, nil
}

func decompressBlock(dst, data []byte, c Compression) error {
	switch c {
	case LZ4:
		n, err := lz4.UncompressBlock(data, dst)
		if err != nil {
			return errors.Wrap(errors.PhaseSerialize, errors.KindInvalidData, err, "lz4 block")
		}
		if n != len(dst) {
			return errors.InvalidData(errors.PhaseSerialize, "decompressed size mismatch")
		}
	case Zstd:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		decoded, err := dec.DecodeAll(data, dst[:0:len(dst)])
		if err != nil {
			return errors.Wrap(errors.PhaseSerialize, errors.KindInvalidData, err, "zstd block")
		}
		if len(decoded) != len(dst) {
			return errors.InvalidData(errors.PhaseSerialize, "decompressed size mismatch")
		}
	default:
		return errors.InvalidData(errors.PhaseSerialize, "compressed block in uncompressed stream")
	}
	return nil
}
