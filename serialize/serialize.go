package serialize

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/wippyai/rbridge/errors"
	"github.com/wippyai/rbridge/heap"
	"github.com/wippyai/rbridge/scalar"
	"github.com/wippyai/rbridge/vector"
)

// Stream layout:
//
//	magic "RBX1" | type u8 | compression u8 | reserved u16 | length u64
//	blocks until length elements have been read
var magic = [4]byte{'R', 'B', 'X', '1'}

const (
	headerSize = 16
	maxLength  = 1 << 40

	// BlockElements is the number of elements per block.
	BlockElements = 1 << 16
)

// Header describes a saved vector.
type Header struct {
	Type        heap.Type
	Compression Compression
	Length      int
}

// ReadHeader reads and validates the stream header.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [headerSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, errors.Wrap(errors.PhaseSerialize, errors.KindInvalidData, err, "read header")
	}
	if [4]byte(buf[:4]) != magic {
		return Header{}, errors.InvalidData(errors.PhaseSerialize, "bad magic")
	}
	hdr := Header{
		Type:        heap.Type(buf[4]),
		Compression: Compression(buf[5]),
	}
	if !hdr.Type.IsVector() {
		return Header{}, errors.InvalidData(errors.PhaseSerialize, "stream does not hold a vector")
	}
	if hdr.Compression > Zstd {
		return Header{}, errors.InvalidData(errors.PhaseSerialize, "unknown compression "+hdr.Compression.String())
	}
	n := binary.LittleEndian.Uint64(buf[8:])
	if n > maxLength {
		return Header{}, errors.InvalidData(errors.PhaseSerialize, "length out of range")
	}
	hdr.Length = int(n)
	return hdr, nil
}

func writeHeader(w io.Writer, hdr Header) error {
	var buf [headerSize]byte
	copy(buf[:4], magic[:])
	buf[4] = byte(hdr.Type)
	buf[5] = byte(hdr.Compression)
	binary.LittleEndian.PutUint64(buf[8:], uint64(hdr.Length))
	_, err := w.Write(buf[:])
	return err
}

// Save writes v to w. Lazy vectors are streamed block by block without
// materializing.
func Save[T vector.Element](w io.Writer, v *vector.Vector[T], c Compression) error {
	if c > Zstd {
		return errors.InvalidInput(errors.PhaseSerialize, "unknown compression "+c.String())
	}
	if v.Closed() {
		return errors.Closed(errors.PhaseSerialize, "vector")
	}
	typ := v.Value().Type()
	if err := writeHeader(w, Header{Type: typ, Compression: c, Length: v.Len()}); err != nil {
		return errors.Wrap(errors.PhaseSerialize, errors.KindInvalidData, err, "write header")
	}

	elems := make([]T, min(BlockElements, v.Len()))
	raw := make([]byte, len(elems)*int(typ.ElemSize()))
	for start := 0; start < v.Len(); start += BlockElements {
		n := min(BlockElements, v.Len()-start)
		if err := v.GetRegion(start, elems[:n]); err != nil {
			return err
		}
		data := encode(raw, elems[:n])
		block, err := compressBlock(data, c)
		if err != nil {
			return errors.Wrap(errors.PhaseSerialize, errors.KindInvalidData, err, "compress block")
		}
		if _, err := w.Write(block); err != nil {
			return errors.Wrap(errors.PhaseSerialize, errors.KindInvalidData, err, "write block")
		}
	}
	return nil
}

// SaveValue saves any vector value. External pointers cannot be saved.
func SaveValue(w io.Writer, v heap.Value, c Compression) error {
	switch v.Type() {
	case heap.RealSxp:
		return saveAs[scalar.Rfloat](w, v, c)
	case heap.IntSxp:
		return saveAs[scalar.Rint](w, v, c)
	case heap.LglSxp:
		return saveAs[scalar.Rbool](w, v, c)
	default:
		return errors.Unsupported(errors.PhaseSerialize, "saving "+v.Type().String())
	}
}

func saveAs[T vector.Element](w io.Writer, v heap.Value, c Compression) error {
	vec, err := vector.TryFrom[T](v)
	if err != nil {
		return err
	}
	defer vec.Close()
	return Save(w, vec, c)
}

// Load reads a vector saved by Save into a new materialized vector.
func Load[T vector.Element](r io.Reader, h *heap.Heap) (*vector.Vector[T], error) {
	hdr, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if want := vector.TypeOf[T](); hdr.Type != want {
		return nil, errors.New(errors.PhaseSerialize, errors.KindTypeMismatch).
			Op("serialize.Load").RType(hdr.Type.String()).
			Detail("stream holds %s, want %s", hdr.Type, want).Build()
	}

	v, err := vector.New[T](h, hdr.Length)
	if err != nil {
		return nil, err
	}
	if err := readBlocks(r, hdr, v); err != nil {
		v.Close()
		return nil, err
	}
	return v, nil
}

func readBlocks[T vector.Element](r io.Reader, hdr Header, v *vector.Vector[T]) error {
	dst, err := v.Mut()
	if err != nil {
		return err
	}
	size := int(hdr.Type.ElemSize())
	var raw, packed []byte
	var bh [blockHeaderSize]byte

	for read := 0; read < hdr.Length; {
		if _, err := io.ReadFull(r, bh[:]); err != nil {
			return errors.Wrap(errors.PhaseSerialize, errors.KindInvalidData, err, "read block header")
		}
		rawSize := int(binary.LittleEndian.Uint32(bh[0:]))
		packedSize := int(binary.LittleEndian.Uint32(bh[4:]))
		if rawSize == 0 || rawSize%size != 0 || rawSize/size > min(BlockElements, hdr.Length-read) {
			return errors.InvalidData(errors.PhaseSerialize, "block size does not fit the vector")
		}
		// Blocks that do not shrink are stored raw.
		if packedSize >= rawSize {
			return errors.InvalidData(errors.PhaseSerialize, "compressed block larger than its contents")
		}

		raw = grow(raw, rawSize)
		if packedSize == 0 {
			if _, err := io.ReadFull(r, raw); err != nil {
				return errors.Wrap(errors.PhaseSerialize, errors.KindInvalidData, err, "read block")
			}
		} else {
			packed = grow(packed, packedSize)
			if _, err := io.ReadFull(r, packed); err != nil {
				return errors.Wrap(errors.PhaseSerialize, errors.KindInvalidData, err, "read block")
			}
			if err := decompressBlock(raw, packed, hdr.Compression); err != nil {
				return err
			}
		}

		n := rawSize / size
		decode(dst[read:read+n], raw)
		read += n
	}
	return nil
}

func grow(b []byte, n int) []byte {
	if cap(b) < n {
		return make([]byte, n)
	}
	return b[:n]
}

// encode writes elems little-endian into buf and returns the used prefix.
func encode[T vector.Element](buf []byte, elems []T) []byte {
	switch s := any(elems).(type) {
	case []scalar.Rfloat:
		for i, x := range s {
			binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(float64(x)))
		}
		return buf[:len(s)*8]
	case []scalar.Rint:
		for i, x := range s {
			binary.LittleEndian.PutUint32(buf[i*4:], uint32(x))
		}
		return buf[:len(s)*4]
	case []scalar.Rbool:
		for i, x := range s {
			binary.LittleEndian.PutUint32(buf[i*4:], uint32(x))
		}
		return buf[:len(s)*4]
	}
	return nil
}

func decode[T vector.Element](dst []T, raw []byte) {
	switch s := any(dst).(type) {
	case []scalar.Rfloat:
		for i := range s {
			s[i] = scalar.Rfloat(math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:])))
		}
	case []scalar.Rint:
		for i := range s {
			s[i] = scalar.Rint(int32(binary.LittleEndian.Uint32(raw[i*4:])))
		}
	case []scalar.Rbool:
		for i := range s {
			s[i] = scalar.Rbool(int32(binary.LittleEndian.Uint32(raw[i*4:])))
		}
	}
}
