package nvmctrl

import "fmt"

// PageSize is the fixed size of a flash page in bytes.
const PageSize uint32 = 512

// BlockSize is the size of an erase block, sixteen pages.
const BlockSize uint32 = PageSize * 16

// Geometry describes the flash array attached to the controller. FlashSize is
// derived from the hardware parameter register once and never changes for the
// lifetime of a handle.
type Geometry struct {
	FlashSize uint32
}

// BankSize is the size of one of the two flash banks.
func (g Geometry) BankSize() uint32 {
	return g.FlashSize / 2
}

// Geometry reports the sizing of the attached flash. The first call reads the
// parameter register; the result is cached on the handle afterwards.
//
// Panics if the hardware reports a page size other than 512 bytes, which means
// the driver is running on an unsupported part.
func (c *Controller) Geometry() Geometry {
	c.sizeOnce.Do(func() {
		param := c.bus.Read32(regPARAM)
		if psz := param >> paramPSZShift & paramPSZMask; psz != paramPSZ512 {
			panic(fmt.Sprintf("nvmctrl: unexpected page size encoding %d, only 512 byte pages are supported", psz))
		}
		pages := param & paramNVMPMask
		c.geom = Geometry{FlashSize: pages * PageSize}
	})
	return c.geom
}

// FlashSize is the total size of the flash array in bytes.
func (c *Controller) FlashSize() uint32 {
	return c.Geometry().FlashSize
}

// BankSize is the size of a single flash bank in bytes.
func (c *Controller) BankSize() uint32 {
	return c.Geometry().BankSize()
}
