package nvmctrl

// Bank identifies one half of the flash array by its current mapping.
//
// Memory layout:
//
//	[  active bank  | inactive bank ]
//	^               ^               ^
//	0x0000_0000     flash_size/2    flash_size
type Bank int

const (
	// BankActive is the bank mapped to address zero, holding the running
	// firmware.
	BankActive Bank = iota
	// BankInactive is the other half, writable as a staging area for a new
	// firmware image.
	BankInactive
)

// Address is the base address of the bank under the given geometry.
func (b Bank) Address(g Geometry) uint32 {
	if b == BankActive {
		return 0
	}
	return g.BankSize()
}

// Length is the bank length in bytes.
func (b Bank) Length(g Geometry) uint32 {
	return g.BankSize()
}

func (b Bank) String() string {
	if b == BankActive {
		return "active"
	}
	return "inactive"
}

// PhysicalBank identifies a silicon bank independent of which one is currently
// mapped first.
type PhysicalBank int

const (
	// PhysicalBankA is silicon bank A.
	PhysicalBankA PhysicalBank = iota
	// PhysicalBankB is silicon bank B.
	PhysicalBankB
)

func (b PhysicalBank) String() string {
	if b == PhysicalBankA {
		return "A"
	}
	return "B"
}

// FirstBank reports which physical bank is currently mapped to address zero.
func (c *Controller) FirstBank() PhysicalBank {
	if c.bus.Read16(regSTATUS)&statusAFIRST != 0 {
		return PhysicalBankA
	}
	return PhysicalBankB
}
