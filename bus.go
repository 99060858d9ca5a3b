package nvm

import "fmt"

var ErrBusUnavailable = fmt.Errorf("register bus transport is unavailable")

// RegisterBus gives access to the NVMCTRL register block. Offsets are relative
// to the peripheral base address. Register accesses are infallible from the
// driver's point of view; transports that can lose their link (debug probes)
// latch the failure and report it through their own Err method.
type RegisterBus interface {
	Read8(off uint32) uint8
	Read16(off uint32) uint16
	Read32(off uint32) uint32
	Write8(off uint32, value uint8)
	Write16(off uint32, value uint16)
	Write32(off uint32, value uint32)
}

// Flash gives word and byte access to the physical flash address space.
// Addresses are absolute. A word store into the mapped flash window lands in
// the controller page buffer, not in the array, until a write page command
// commits it.
type Flash interface {
	Word(addr uint32) uint32
	StoreWord(addr uint32, value uint32)
	Byte(addr uint32) byte
}

// Target bundles the two substrates the controller driver needs.
type Target interface {
	RegisterBus
	Flash
}
