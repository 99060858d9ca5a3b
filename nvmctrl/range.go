package nvmctrl

import "fmt"

// Range is a half-open address range [Start, End).
type Range struct {
	Start uint32
	End   uint32
}

// Empty reports whether the range covers no addresses.
func (r Range) Empty() bool {
	return r.Start == r.End
}

// Overlap reports whether the two ranges share addresses. An empty range never
// overlaps anything. Ranges that merely touch are treated as overlapping,
// which errs on the side of protection.
func (r Range) Overlap(o Range) bool {
	return !r.Empty() && !o.Empty() && r.Start <= o.End && o.Start <= r.End
}

func (r Range) String() string {
	return fmt.Sprintf("[0x%08x, 0x%08x)", r.Start, r.End)
}

// containsBootProtected reports whether the range touches the region guarded
// for the bootloader. The protected size is recomputed from STATUS.BOOTPROT on
// every call since it changes across boot protection reconfiguration:
//
//   - 15 = no protection, the default
//   - 0  = maximum protection, 15 * 8 KiB = 120 KiB
//   - protected size = (15 - BOOTPROT) * 8 KiB
func (c *Controller) containsBootProtected(r Range) bool {
	bootprot := uint32(c.bus.Read16(regSTATUS) >> statusBOOTPROTShift & statusBOOTPROTMask)
	bpSpace := 8 * 1024 * (15 - bootprot)

	g := c.Geometry()
	boot := Range{
		Start: BankActive.Address(g),
		End:   BankActive.Address(g) + bpSpace,
	}
	return c.IsBootProtected() && r.Overlap(boot)
}

// containsReserved reports whether the range touches a region claimed by a
// collaborator, such as the SmartEEPROM emulation. No regions are reserved
// until a collaborator registers one.
func (c *Controller) containsReserved(r Range) bool {
	for _, res := range c.reserved {
		if r.Overlap(res) {
			return true
		}
	}
	return false
}

// Reserve excludes a range from all erase and write operations on this handle.
// Intended for collaborators that own dedicated flash regions; the controller
// itself never reserves anything.
func (c *Controller) Reserve(r Range) {
	if r.Empty() {
		return
	}
	c.reserved = append(c.reserved, r)
}

// Reserved returns the currently registered reserved ranges.
func (c *Controller) Reserved() []Range {
	out := make([]Range, len(c.reserved))
	copy(out, c.reserved)
	return out
}
