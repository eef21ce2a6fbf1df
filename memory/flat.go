package memory

import "encoding/binary"

// Flat is a single contiguous byte slice implementing Memory, suitable
// for tests and for the CLI's embedding example. It is not part of the
// core: real embedders plug in their own bus model, ROM mirroring, and
// fault handling.
type Flat struct {
	base uint32
	data []byte
	rom  []ROMWindow
}

// NewFlat returns a Flat region of size bytes starting at base, with
// rom marking the sub-ranges the translator may treat as immutable.
func NewFlat(base uint32, size int, rom []ROMWindow) *Flat {
	return &Flat{base: base, data: make([]byte, size), rom: rom}
}

// Load copies data into the region starting at addr. It is a setup
// helper, not part of the Memory interface.
func (m *Flat) Load(addr uint32, data []byte) { copy(m.data[addr-m.base:], data) }

func (m *Flat) off(addr uint32) uint32 { return addr - m.base }

func (m *Flat) FastRead8(_ Bus, addr uint32) uint8 { return m.data[m.off(addr)] }
func (m *Flat) FastRead16(_ Bus, addr uint32) uint16 {
	return binary.LittleEndian.Uint16(m.data[m.off(addr):])
}
func (m *Flat) FastRead32(_ Bus, addr uint32) uint32 {
	return binary.LittleEndian.Uint32(m.data[m.off(addr):])
}

func (m *Flat) Read8(bus Bus, addr uint32) uint8   { return m.FastRead8(bus, addr) }
func (m *Flat) Read16(bus Bus, addr uint32) uint16 { return m.FastRead16(bus, addr) }
func (m *Flat) Read32(bus Bus, addr uint32) uint32 { return m.FastRead32(bus, addr) }

func (m *Flat) Write8(_ Bus, addr uint32, v uint8) { m.data[m.off(addr)] = v }
func (m *Flat) Write16(_ Bus, addr uint32, v uint16) {
	binary.LittleEndian.PutUint16(m.data[m.off(addr):], v)
}
func (m *Flat) Write32(_ Bus, addr uint32, v uint32) {
	binary.LittleEndian.PutUint32(m.data[m.off(addr):], v)
}

func (m *Flat) ROMWindows() []ROMWindow { return m.rom }
