package alloc

import "bytes"

const (
	sectionMemory    = 0x05
	sectionExport    = 0x07
	exportKindMemory = 0x02
	limitsWithMax    = 0x01

	memoryExport = "memory"
)

var wasmHeader = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// memoryModule encodes a module whose only content is one exported memory:
//
//	(module (memory (export "memory") min max))
func memoryModule(minPages, maxPages uint32) []byte {
	var out bytes.Buffer
	out.Write(wasmHeader)

	var mem bytes.Buffer
	mem.WriteByte(1)
	mem.WriteByte(limitsWithMax)
	writeLEB128u(&mem, minPages)
	writeLEB128u(&mem, maxPages)
	writeSection(&out, sectionMemory, mem.Bytes())

	var exp bytes.Buffer
	exp.WriteByte(1)
	writeLEB128u(&exp, uint32(len(memoryExport)))
	exp.WriteString(memoryExport)
	exp.WriteByte(exportKindMemory)
	exp.WriteByte(0)
	writeSection(&out, sectionExport, exp.Bytes())

	return out.Bytes()
}

func writeSection(w *bytes.Buffer, id byte, payload []byte) {
	w.WriteByte(id)
	writeLEB128u(w, uint32(len(payload)))
	w.Write(payload)
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
