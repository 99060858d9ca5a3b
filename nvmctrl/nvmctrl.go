// Package nvmctrl drives the on-chip non-volatile memory controller. It
// mediates all erase and write access to flash, enforces the bootloader
// protected range, and models the two flash banks so a new firmware image can
// be staged in the inactive bank and activated with a single bank swap.
//
// The hardware substrate is abstracted behind the interfaces in the root
// package, so the driver runs unchanged against memory mapped registers on the
// target, a debug probe on a host, or the in-package Simulator in tests.
//
// Typical usage:
//
//	sim := nvmctrl.NewSimulator(2048)
//	c, err := nvmctrl.Open(sim)
//	if err != nil { ... }
//	defer c.Release()
//	err = c.Erase(dst, 1, nvmctrl.EraseBlock)
//	err = c.Write(dst, src, words)
package nvmctrl

import (
	"sync"

	"github.com/mklimuk/nvm"
)

// Controller is an exclusive handle to the NVM peripheral. At most one live
// handle exists per process; Open fails until the previous handle is released.
// Commands from two call sites would corrupt the shared page buffer and
// address register, so all mutating operations go through this handle.
type Controller struct {
	bus nvm.RegisterBus
	mem nvm.Flash

	sizeOnce sync.Once
	geom     Geometry

	reserved []Range
}

var (
	claimMx sync.Mutex
	claimed bool
)

// Open claims the controller. It fails with ErrControllerClaimed while another
// handle is live.
func Open(target nvm.Target) (*Controller, error) {
	claimMx.Lock()
	defer claimMx.Unlock()
	if claimed {
		return nil, ErrControllerClaimed
	}
	claimed = true
	return &Controller{bus: target, mem: target}, nil
}

// Release returns the claim taken by Open. The handle must not be used
// afterwards.
func (c *Controller) Release() {
	claimMx.Lock()
	claimed = false
	claimMx.Unlock()
}

// IsReady reports whether the controller can accept a new command.
func (c *Controller) IsReady() bool {
	return c.bus.Read16(regSTATUS)&statusREADY != 0
}

// IsBootProtected reports whether bootloader protection is currently enforced.
func (c *Controller) IsBootProtected() bool {
	return c.bus.Read16(regSTATUS)&statusBPDIS == 0
}

// PowerReductionMode sets how the controller enters its low power state.
func (c *Controller) PowerReductionMode(prm PowerReductionMode) {
	ctrla := c.bus.Read16(regCTRLA)
	ctrla &^= ctrlaPRMMask << ctrlaPRMShift
	ctrla |= uint16(prm) << ctrlaPRMShift
	c.bus.Write16(regCTRLA, ctrla)
}

// BootProtection enables or disables bootloader protection. Requesting the
// state that is already in place fails with ErrNoChangeBootProtection and
// issues no command.
//
// The protected size itself comes from the user page BOOTPROT fuse and is
// loaded into STATUS.BOOTPROT on reset; this toggles only whether it is
// enforced.
func (c *Controller) BootProtection(protect bool) error {
	if c.IsBootProtected() == protect {
		return ErrNoChangeBootProtection
	}
	c.waitReady()
	if protect {
		// Clear boot protection disable.
		c.commandSync(CmdCBPDIS)
	} else {
		// Set boot protection disable.
		c.commandSync(CmdSBPDIS)
	}
	return c.manageErrorStates()
}

// BankSwap swaps the flash banks. The processor resets atomically with the
// command, after which the previously inactive bank boots. The call never
// returns; control reaching the end of the command means the hardware did not
// reset and the driver panics.
//
// The caller must make sure the inactive bank holds a valid firmware image
// before swapping.
func (c *Controller) BankSwap() {
	c.commandSync(CmdBKSWRST)
	panic("nvmctrl: device did not reset after bank swap")
}

// setAddress sets the target address for the next command.
func (c *Controller) setAddress(addr uint32) {
	c.bus.Write32(regADDR, addr&addrMask)
}

// command issues a command without waiting for completion.
func (c *Controller) command(cmd Command) {
	c.bus.Write16(regCTRLB, uint16(cmd)&ctrlbCmdMask|commandKey<<ctrlbKeyShift)
}

// commandSync issues a command and spins until the controller signals
// completion, then clears the done flag. This is the only blocking primitive
// in the driver; flash operations complete in bounded hardware time and there
// is no scheduler to yield to.
func (c *Controller) commandSync(cmd Command) {
	c.command(cmd)
	for c.bus.Read16(regINTFLAG)&intDONE == 0 {
	}
	c.bus.Write16(regINTFLAG, intDONE)
}

// waitReady blocks until the controller is ready for the next command.
func (c *Controller) waitReady() {
	for !c.IsReady() {
	}
}

// manageErrorStates classifies the sticky error flags left by the last
// command. ADDRE and LOCKE are checked before PROGE as they are more specific.
// All three flags are cleared exactly once regardless of the outcome, so a
// stale flag never leaks into an unrelated later operation.
func (c *Controller) manageErrorStates() error {
	flags := c.bus.Read16(regINTFLAG)

	var err error
	switch {
	case flags&intADDRE != 0:
		err = AddressError
	case flags&intLOCKE != 0:
		err = LockError
	case flags&intPROGE != 0:
		err = ProgrammingError
	}

	c.bus.Write16(regINTFLAG, intADDRE)
	c.bus.Write16(regINTFLAG, intLOCKE)
	c.bus.Write16(regINTFLAG, intPROGE)
	return err
}
