package nvmctrl

// NVMCTRL register block offsets (relative to the peripheral base).
const (
	regCTRLA   uint32 = 0x00 // 16-bit control A
	regCTRLB   uint32 = 0x04 // 16-bit command register
	regPARAM   uint32 = 0x08 // 32-bit NVM parameters
	regINTFLAG uint32 = 0x10 // 16-bit interrupt flags, write 1 to clear
	regSTATUS  uint32 = 0x12 // 16-bit status
	regADDR    uint32 = 0x14 // 32-bit command target address
)

// Command values accepted by CTRLB.CMD. Every command must be written together
// with the execution key or the controller rejects it with a programming
// error.
type Command uint8

const (
	CmdEP      Command = 0x00 // erase page (AUX memory only)
	CmdEB      Command = 0x01 // erase block
	CmdWP      Command = 0x03 // write page from the page buffer
	CmdWQW     Command = 0x04 // write quad word
	CmdSWRST   Command = 0x10 // software reset
	CmdLR      Command = 0x11 // lock region
	CmdUR      Command = 0x12 // unlock region
	CmdSPRM    Command = 0x13 // set power reduction mode
	CmdCPRM    Command = 0x14 // clear power reduction mode
	CmdPBC     Command = 0x15 // page buffer clear
	CmdSSB     Command = 0x16 // set security bit
	CmdBKSWRST Command = 0x17 // bank swap and system reset
	CmdCELCK   Command = 0x18 // chip erase lock
	CmdCEULCK  Command = 0x19 // chip erase unlock
	CmdSBPDIS  Command = 0x1A // set boot protection disable
	CmdCBPDIS  Command = 0x1B // clear boot protection disable
)

func (c Command) String() string {
	switch c {
	case CmdEP:
		return "EP"
	case CmdEB:
		return "EB"
	case CmdWP:
		return "WP"
	case CmdWQW:
		return "WQW"
	case CmdSWRST:
		return "SWRST"
	case CmdLR:
		return "LR"
	case CmdUR:
		return "UR"
	case CmdSPRM:
		return "SPRM"
	case CmdCPRM:
		return "CPRM"
	case CmdPBC:
		return "PBC"
	case CmdSSB:
		return "SSB"
	case CmdBKSWRST:
		return "BKSWRST"
	case CmdCELCK:
		return "CELCK"
	case CmdCEULCK:
		return "CEULCK"
	case CmdSBPDIS:
		return "SBPDIS"
	case CmdCBPDIS:
		return "CBPDIS"
	}
	return "UNKNOWN"
}

// CTRLB layout: CMD in [6:0], CMDEX in [15:8]. Commands execute only when
// written together with the key.
const (
	ctrlbCmdMask  uint16 = 0x007F
	ctrlbKeyShift        = 8
	commandKey    uint16 = 0xA5
)

// CTRLA.PRM power reduction mode field.
const (
	ctrlaPRMShift = 6
	ctrlaPRMMask  = 0x3
)

// PowerReductionMode selects how the controller enters its low power state.
type PowerReductionMode uint8

const (
	// PowerReductionSemiAuto enters low power on standby and leaves it on
	// the first access after wakeup.
	PowerReductionSemiAuto PowerReductionMode = 0x0
	// PowerReductionFullAuto enters and leaves low power automatically.
	PowerReductionFullAuto PowerReductionMode = 0x1
	// PowerReductionManual enters and leaves low power only on the SPRM and
	// CPRM commands.
	PowerReductionManual PowerReductionMode = 0x3
)

// PARAM fields.
const (
	paramNVMPMask uint32 = 0xFFFF
	paramPSZShift        = 16
	paramPSZMask  uint32 = 0x7
	paramPSZ512   uint32 = 0x6 // PSZ encoding of a 512 byte page
)

// INTFLAG bits. All of them are sticky until written back with a one.
const (
	intDONE  uint16 = 1 << 0
	intADDRE uint16 = 1 << 1
	intPROGE uint16 = 1 << 2
	intLOCKE uint16 = 1 << 3
	intECCSE uint16 = 1 << 4
	intECCDE uint16 = 1 << 5
	intNVME  uint16 = 1 << 6
)

// STATUS bits and fields.
const (
	statusREADY  uint16 = 1 << 0
	statusAFIRST uint16 = 1 << 4
	statusBPDIS  uint16 = 1 << 5

	statusBOOTPROTShift        = 8
	statusBOOTPROTMask  uint16 = 0xF
)

// ADDR accepts a 24-bit address.
const addrMask uint32 = 0x00FF_FFFF

// Fixed physical addresses of the factory and user rows. These are absolute
// positions in the device memory map, outside the main array.
const (
	userPageAddr      uint32 = 0x0080_4000
	userPageLen              = 16
	calibAreaAddr     uint32 = 0x0080_0080
	calibAreaLen             = 6
	tempCalibAreaAddr uint32 = 0x0080_0100
	tempCalibAreaLen         = 11
)
