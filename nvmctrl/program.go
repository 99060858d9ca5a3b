package nvmctrl

// EraseGranularity is the unit a single erase command operates on.
type EraseGranularity int

const (
	// EraseBlock erases one block of sixteen pages. Main memory supports
	// only block erase.
	EraseBlock EraseGranularity = iota
	// ErasePage erases one page. Supported by the AUX memory.
	ErasePage
)

func (g EraseGranularity) command() Command {
	if g == ErasePage {
		return CmdEP
	}
	return CmdEB
}

// Size is the number of bytes erased per command.
func (g EraseGranularity) Size() uint32 {
	if g == ErasePage {
		return PageSize
	}
	return BlockSize
}

func (g EraseGranularity) String() string {
	if g == ErasePage {
		return "page"
	}
	return "block"
}

const wordSize = 4

// Write copies words 32-bit words from src to the flash destination dst. Both
// addresses must be word aligned. The destination pages must have been erased
// beforehand.
//
// Data is staged word by word in the controller page buffer and committed with
// a write page command at every page boundary, plus once more for a trailing
// partial page. A failed precondition returns before any command is issued.
func (c *Controller) Write(dst, src, words uint32) error {
	length := words * wordSize
	writeRange := Range{Start: dst, End: dst + length}

	if src%wordSize != 0 || dst%wordSize != 0 {
		return ErrAlignment
	}
	if c.containsBootProtected(writeRange) {
		return ErrProtected
	}
	if c.containsReserved(writeRange) {
		return ErrReservedRegion
	}

	c.waitReady()
	c.commandSync(CmdPBC)

	// Tracks unwritten data sitting in the page buffer.
	dirty := false
	for off := uint32(0); off < length; off += wordSize {
		// A store into the mapped flash window lands in the page buffer
		// and updates ADDR automatically; nothing reaches the array
		// until the write page command below.
		c.mem.StoreWord(dst+off, c.mem.Word(src+off))
		dirty = true

		// Commit before the page buffer runs out at the page boundary.
		if (dst+off)%PageSize >= PageSize-wordSize {
			c.waitReady()
			dirty = false
			c.commandSync(CmdWP)
		}
	}

	c.waitReady()
	if dirty {
		// Commit the trailing partial page.
		c.commandSync(CmdWP)
	}

	return c.manageErrorStates()
}

// Erase erases length units of the chosen granularity starting at addr. The
// address is rounded down to the containing unit first, so a mid-block address
// still checks and erases the whole unit.
//
// On a hardware error the loop stops immediately; units erased up to that
// point stay erased. Callers needing atomicity across units must provide it
// themselves.
func (c *Controller) Erase(addr, length uint32, granularity EraseGranularity) error {
	unit := granularity.Size()
	start := addr - addr%unit
	eraseRange := Range{Start: start, End: start + length*unit}

	if c.containsBootProtected(eraseRange) {
		return ErrProtected
	}
	if c.containsReserved(eraseRange) {
		return ErrReservedRegion
	}

	for target := eraseRange.Start; target < eraseRange.End; target += unit {
		c.setAddress(target)
		c.waitReady()
		c.commandSync(granularity.command())
		if err := c.manageErrorStates(); err != nil {
			return err
		}
	}
	return nil
}
