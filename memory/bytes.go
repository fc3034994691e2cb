package memory

import (
	"encoding/binary"

	valuewitness "github.com/wippyai/value-witness"
	"github.com/wippyai/value-witness/errors"
)

var (
	_ valuewitness.Memory      = (*Bytes)(nil)
	_ valuewitness.MemorySizer = (*Bytes)(nil)
	_ valuewitness.Allocator   = (*Bytes)(nil)
)

// Bytes is a fixed-size memory backed by a byte slice.
// Allocation bumps a cursor; only the most recent allocation can be freed.
type Bytes struct {
	data []byte
	next uint32
	// last is the start of the most recent allocation and prev the cursor
	// before it.
	last uint32
	prev uint32
}

// NewBytes creates a zeroed memory of size bytes.
func NewBytes(size uint32) *Bytes {
	return &Bytes{data: make([]byte, size)}
}

// FromSlice wraps data without copying. Allocation starts past its end.
func FromSlice(data []byte) *Bytes {
	return &Bytes{data: data, next: uint32(len(data))}
}

// Data returns the backing slice.
func (m *Bytes) Data() []byte {
	return m.data
}

// Size returns the memory size in bytes.
func (m *Bytes) Size() uint32 {
	return uint32(len(m.data))
}

func (m *Bytes) span(offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(m.data)) {
		return nil, errors.OutOfBounds(errors.PhaseMemory, offset, length)
	}
	return m.data[offset:end:end], nil
}

// Read returns a copy of length bytes at offset.
func (m *Bytes) Read(offset uint32, length uint32) ([]byte, error) {
	b, err := m.span(offset, length)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

// Write copies data to offset.
func (m *Bytes) Write(offset uint32, data []byte) error {
	b, err := m.span(offset, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(b, data)
	return nil
}

// ReadU8 reads an unsigned 8-bit value.
func (m *Bytes) ReadU8(offset uint32) (uint8, error) {
	b, err := m.span(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads an unsigned 16-bit little-endian value.
func (m *Bytes) ReadU16(offset uint32) (uint16, error) {
	b, err := m.span(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (m *Bytes) ReadU32(offset uint32) (uint32, error) {
	b, err := m.span(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (m *Bytes) ReadU64(offset uint32) (uint64, error) {
	b, err := m.span(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// WriteU8 writes an unsigned 8-bit value.
func (m *Bytes) WriteU8(offset uint32, value uint8) error {
	b, err := m.span(offset, 1)
	if err != nil {
		return err
	}
	b[0] = value
	return nil
}

// WriteU16 writes an unsigned 16-bit little-endian value.
func (m *Bytes) WriteU16(offset uint32, value uint16) error {
	b, err := m.span(offset, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b, value)
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (m *Bytes) WriteU32(offset uint32, value uint32) error {
	b, err := m.span(offset, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, value)
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (m *Bytes) WriteU64(offset uint32, value uint64) error {
	b, err := m.span(offset, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, value)
	return nil
}

// Alloc reserves size bytes aligned to align.
func (m *Bytes) Alloc(size, align uint32) (uint32, error) {
	if align == 0 || align&(align-1) != 0 {
		return 0, errors.InvalidInput(errors.PhaseMemory, "alignment must be a power of two")
	}
	start := (uint64(m.next) + uint64(align) - 1) &^ (uint64(align) - 1)
	end := start + uint64(size)
	if end > uint64(len(m.data)) {
		return 0, errors.AllocationFailed(errors.PhaseMemory, size, align)
	}
	m.prev = m.next
	m.last = uint32(start)
	m.next = uint32(end)
	return m.last, nil
}

// Free gives back the most recent allocation. Other regions stay reserved.
func (m *Bytes) Free(ptr, size, align uint32) {
	if ptr == m.last && uint64(ptr)+uint64(size) == uint64(m.next) && m.next != m.prev {
		m.next = m.prev
	}
}
