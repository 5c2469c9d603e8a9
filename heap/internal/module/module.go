// Package module encodes the memory-only core module that backs the heap.
package module

import (
	"bytes"
	"encoding/binary"
)

const (
	magic   uint32 = 0x6D736100
	version uint32 = 0x01

	sectionMemory byte = 5
	sectionExport byte = 7

	kindMemory   byte = 2
	limitsHasMax byte = 0x01
)

// MemoryExport is the export name of the heap memory.
const MemoryExport = "memory"

// Memory returns a module exporting one memory with the given page limits.
func Memory(minPages, maxPages uint32) []byte {
	var w bytes.Buffer
	_ = binary.Write(&w, binary.LittleEndian, magic)
	_ = binary.Write(&w, binary.LittleEndian, version)

	var mem bytes.Buffer
	writeLEB128u(&mem, 1)
	mem.WriteByte(limitsHasMax)
	writeLEB128u(&mem, minPages)
	writeLEB128u(&mem, maxPages)
	writeSection(&w, sectionMemory, mem.Bytes())

	var exp bytes.Buffer
	writeLEB128u(&exp, 1)
	writeName(&exp, MemoryExport)
	exp.WriteByte(kindMemory)
	writeLEB128u(&exp, 0)
	writeSection(&w, sectionExport, exp.Bytes())

	return w.Bytes()
}

func writeSection(w *bytes.Buffer, id byte, data []byte) {
	w.WriteByte(id)
	writeLEB128u(w, uint32(len(data)))
	w.Write(data)
}

func writeName(w *bytes.Buffer, name string) {
	writeLEB128u(w, uint32(len(name)))
	w.WriteString(name)
}

func writeLEB128u(w *bytes.Buffer, v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.WriteByte(b)
		if v == 0 {
			break
		}
	}
}
