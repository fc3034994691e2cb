package memory

import (
	"github.com/tetratelabs/wazero/api"

	valuewitness "github.com/wippyai/value-witness"
	"github.com/wippyai/value-witness/errors"
)

// Wrap adapts a wazero api.Memory to valuewitness.Memory.
func Wrap(mem api.Memory) valuewitness.Memory {
	if mem == nil {
		return nil
	}
	return &Wrapper{Mem: mem}
}

// Wrapper adapts wazero api.Memory to the valuewitness.Memory interface.
type Wrapper struct {
	Mem api.Memory
}

// Size returns the current linear memory size in bytes.
func (m *Wrapper) Size() uint32 {
	return m.Mem.Size()
}

// Read reads bytes from memory. The result aliases guest memory.
func (m *Wrapper) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.Mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseMemory, offset, length)
	}
	return data, nil
}

// Write writes bytes to memory.
func (m *Wrapper) Write(offset uint32, data []byte) error {
	if !m.Mem.Write(offset, data) {
		return errors.OutOfBounds(errors.PhaseMemory, offset, uint32(len(data)))
	}
	return nil
}

func (m *Wrapper) ReadU8(offset uint32) (uint8, error) {
	v, ok := m.Mem.ReadByte(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseMemory, offset, 1)
	}
	return v, nil
}

func (m *Wrapper) ReadU16(offset uint32) (uint16, error) {
	v, ok := m.Mem.ReadUint16Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseMemory, offset, 2)
	}
	return v, nil
}

func (m *Wrapper) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.Mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseMemory, offset, 4)
	}
	return v, nil
}

func (m *Wrapper) ReadU64(offset uint32) (uint64, error) {
	v, ok := m.Mem.ReadUint64Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseMemory, offset, 8)
	}
	return v, nil
}

func (m *Wrapper) WriteU8(offset uint32, value uint8) error {
	if !m.Mem.WriteByte(offset, value) {
		return errors.OutOfBounds(errors.PhaseMemory, offset, 1)
	}
	return nil
}

func (m *Wrapper) WriteU16(offset uint32, value uint16) error {
	if !m.Mem.WriteUint16Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseMemory, offset, 2)
	}
	return nil
}

func (m *Wrapper) WriteU32(offset uint32, value uint32) error {
	if !m.Mem.WriteUint32Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseMemory, offset, 4)
	}
	return nil
}

func (m *Wrapper) WriteU64(offset uint32, value uint64) error {
	if !m.Mem.WriteUint64Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseMemory, offset, 8)
	}
	return nil
}
