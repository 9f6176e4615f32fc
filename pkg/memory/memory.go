// Package memory implements the flat, byte-addressable store used by the
// ASML interpreter: a fixed-size byte array with bounds-checked load/store
// of byte runs of any length that fits. The store has no byte order of its
// own; the interpreter encodes register values little-endian and moves at
// most 8 bytes per STORE/LOAD.
package memory

// Bytes is a fixed-size, zero-initialized byte store. Unlike the teacher
// project's process-wide CPU memory, a Bytes value is owned by exactly one
// interpreter so that multiple interpreters never share state.
type Bytes struct {
	data []byte
}

// New allocates a zero-initialized store of the given size.
func New(size int) *Bytes {
	return &Bytes{data: make([]byte, size)}
}

// Len returns the size of the store in bytes.
func (m *Bytes) Len() int {
	return len(m.data)
}

// Store writes length bytes from src[0:length] to data starting at address.
// It reports false without writing anything if address+length exceeds the
// store's size or overflows.
func (m *Bytes) Store(src []byte, address uint64, length int) bool {
	if length < 0 || length > len(src) {
		return false
	}
	end := address + uint64(length)
	if end < address || end > uint64(len(m.data)) {
		return false
	}
	copy(m.data[address:end], src[:length])
	return true
}

// Load reads length bytes from data starting at address into dst[0:length].
// It reports false without reading anything if address+length exceeds the
// store's size or overflows.
func (m *Bytes) Load(dst []byte, address uint64, length int) bool {
	if length < 0 || length > len(dst) {
		return false
	}
	end := address + uint64(length)
	if end < address || end > uint64(len(m.data)) {
		return false
	}
	copy(dst[:length], m.data[address:end])
	return true
}

// StoreByte writes a single byte at address, reporting false if address is
// out of bounds.
func (m *Bytes) StoreByte(address uint64, b byte) bool {
	if address >= uint64(len(m.data)) {
		return false
	}
	m.data[address] = b
	return true
}

// LoadByte reads a single byte at address, reporting false if address is
// out of bounds.
func (m *Bytes) LoadByte(address uint64) (byte, bool) {
	if address >= uint64(len(m.data)) {
		return 0, false
	}
	return m.data[address], true
}
