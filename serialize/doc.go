// Package serialize saves heap vectors to a byte stream and loads them back.
//
// A stream is a 16-byte header followed by blocks of up to BlockElements
// little-endian elements. Each block is compressed on its own with LZ4 or
// zstd and kept raw when compression saves less than 10%. NA bit patterns
// survive the round trip unchanged.
//
//	err := serialize.Save(f, v, serialize.Zstd)
//	w, err := serialize.Load[scalar.Rfloat](f, h)
//
// Lazy vectors are saved without materializing them; Load always produces
// materialized storage. External pointers hold native objects and cannot
// be saved.
package serialize
