// Package mmio implements the register and flash substrates over memory
// mapped I/O for code running on the target device. The peripheral bus is
// strongly ordered and uncached, so plain loads and stores are sufficient;
// using this package anywhere but on the target faults on the first access.
package mmio

import (
	"unsafe"

	"github.com/mklimuk/nvm"
)

// NVMCTRLBase is the physical base address of the controller register block.
const NVMCTRLBase uintptr = 0x4100_4000

var _ nvm.Target = &Target{}

// Target is the live device: the NVMCTRL register block plus the flash
// address space.
type Target struct {
	base uintptr
}

// NewTarget returns the memory mapped device substrate.
func NewTarget() *Target {
	return &Target{base: NVMCTRLBase}
}

func (t *Target) reg(off uint32) unsafe.Pointer {
	return unsafe.Pointer(t.base + uintptr(off))
}

func (t *Target) Read8(off uint32) uint8 {
	return *(*uint8)(t.reg(off))
}

func (t *Target) Read16(off uint32) uint16 {
	return *(*uint16)(t.reg(off))
}

func (t *Target) Read32(off uint32) uint32 {
	return *(*uint32)(t.reg(off))
}

func (t *Target) Write8(off uint32, value uint8) {
	*(*uint8)(t.reg(off)) = value
}

func (t *Target) Write16(off uint32, value uint16) {
	*(*uint16)(t.reg(off)) = value
}

func (t *Target) Write32(off uint32, value uint32) {
	*(*uint32)(t.reg(off)) = value
}

// Word reads a 32-bit word from an absolute physical address.
func (t *Target) Word(addr uint32) uint32 {
	return *(*uint32)(unsafe.Pointer(uintptr(addr)))
}

// StoreWord writes a 32-bit word to an absolute physical address. A store
// into the mapped flash window is intercepted by the controller page buffer.
func (t *Target) StoreWord(addr uint32, value uint32) {
	*(*uint32)(unsafe.Pointer(uintptr(addr))) = value
}

// Byte reads a single byte from an absolute physical address.
func (t *Target) Byte(addr uint32) byte {
	return *(*byte)(unsafe.Pointer(uintptr(addr)))
}
