// Package seeprom ties the SmartEEPROM feature of the NVM controller into the
// flash driver. SmartEEPROM emulates byte addressable non-volatile memory on
// top of flash blocks allocated through the user page fuses; those blocks sit
// at the top of each bank and must be excluded from ordinary erase and write
// traffic. This package owns that reservation: Retrieve reads the layout
// fuses, registers the reserved ranges with the controller and returns a
// handle describing the configured area.
//
// The byte level access emulation itself lives behind the hardware SEES
// interface and is not part of this driver.
package seeprom

import (
	"fmt"

	"github.com/mklimuk/nvm/nvmctrl"
)

// ErrDisabled is returned when the user page allocates no SmartEEPROM blocks.
var ErrDisabled = fmt.Errorf("seeprom: no blocks allocated in the user page")

// SmartEEPROM describes the configured SmartEEPROM area.
type SmartEEPROM struct {
	blocks   uint32
	pageSize uint32
	reserved []nvmctrl.Range
}

// Retrieve reads the SmartEEPROM layout fuses from the user page and registers
// the allocated flash ranges with the controller so ordinary erase and write
// operations reject them. Fails with ErrDisabled when the user page allocates
// nothing; the controller is left untouched in that case.
func Retrieve(c *nvmctrl.Controller) (*SmartEEPROM, error) {
	page := c.UserPage()
	blocks := page.SEEBlocks()
	if blocks == 0 {
		return nil, ErrDisabled
	}

	g := c.Geometry()
	s := &SmartEEPROM{
		blocks: blocks,
		// The fuse encodes the virtual page size as a power of two,
		// 4 bytes up to 512 bytes.
		pageSize: 4 << page.SEEPageSize(),
	}
	// The allocated blocks occupy the top of each bank, mirrored for wear
	// distribution across the swap.
	for _, b := range []nvmctrl.Bank{nvmctrl.BankActive, nvmctrl.BankInactive} {
		end := b.Address(g) + b.Length(g)
		r := nvmctrl.Range{Start: end - blocks*nvmctrl.BlockSize, End: end}
		c.Reserve(r)
		s.reserved = append(s.reserved, r)
	}
	return s, nil
}

// Blocks is the number of 8 KiB flash blocks allocated per bank.
func (s *SmartEEPROM) Blocks() uint32 {
	return s.blocks
}

// PageSize is the virtual page size in bytes.
func (s *SmartEEPROM) PageSize() uint32 {
	return s.pageSize
}

// Reserved returns the physical flash ranges claimed by the SmartEEPROM.
func (s *SmartEEPROM) Reserved() []nvmctrl.Range {
	out := make([]nvmctrl.Range, len(s.reserved))
	copy(out, s.reserved)
	return out
}
