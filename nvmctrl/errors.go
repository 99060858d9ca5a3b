package nvmctrl

import "fmt"

// PeripheralError is a failure reported by the controller itself through its
// sticky interrupt flags.
type PeripheralError uint8

const (
	// NVMError is a generic controller error.
	NVMError PeripheralError = iota
	// ECCSingleError is a corrected single-bit ECC fault.
	ECCSingleError
	// ECCDualError is an uncorrectable dual-bit ECC fault.
	ECCDualError
	// LockError is a command that targeted a locked region.
	LockError
	// ProgrammingError is a rejected or malformed command.
	ProgrammingError
	// AddressError is a command that targeted an invalid address.
	AddressError
)

func (e PeripheralError) Error() string {
	switch e {
	case NVMError:
		return "nvmctrl: controller error"
	case ECCSingleError:
		return "nvmctrl: single-bit ECC error"
	case ECCDualError:
		return "nvmctrl: dual-bit ECC error"
	case LockError:
		return "nvmctrl: region locked"
	case ProgrammingError:
		return "nvmctrl: programming error"
	case AddressError:
		return "nvmctrl: address error"
	}
	return "nvmctrl: unknown peripheral error"
}

// Driver-level failures detected in software before any command is issued.
var (
	ErrProtected              = fmt.Errorf("nvmctrl: range overlaps the boot protected region")
	ErrReservedRegion         = fmt.Errorf("nvmctrl: range overlaps a reserved region")
	ErrNoChangeBootProtection = fmt.Errorf("nvmctrl: boot protection already in requested state")
	ErrAlignment              = fmt.Errorf("nvmctrl: address is not word aligned")
	ErrControllerClaimed      = fmt.Errorf("nvmctrl: controller handle already claimed")
)
