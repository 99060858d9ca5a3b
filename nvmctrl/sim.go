package nvmctrl

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// Simulator is a behavioral model of the controller and its flash array. It
// implements the register bus and flash substrates, executes commands, keeps
// the interrupt flags sticky and counts every command it accepts, so driver
// behavior can be asserted without hardware.
//
// The zero value is not usable; construct with NewSimulator.
type Simulator struct {
	mx sync.Mutex

	flash   []byte
	aux     map[uint32]byte   // fixed fuse regions
	ram     map[uint32]uint32 // anything outside flash and fuse space
	pageBuf [PageSize]byte

	addr     uint32
	ctrla    uint16
	intflag  uint16
	bpdis    bool
	afirst   bool
	bootprot uint8
	swapped  bool

	issued   map[Command]int
	injected uint16
}

// NewSimulator creates a simulator with the given number of 512 byte pages,
// erased flash, bank A mapped first and the default user page protection
// fields (BOOTPROT 15, protection enforced but zero sized).
func NewSimulator(pages int) *Simulator {
	s := &Simulator{
		flash:    make([]byte, pages*int(PageSize)),
		aux:      make(map[uint32]byte),
		ram:      make(map[uint32]uint32),
		afirst:   true,
		bootprot: 15,
		issued:   make(map[Command]int),
	}
	for i := range s.flash {
		s.flash[i] = 0xFF
	}
	for i := range s.pageBuf {
		s.pageBuf[i] = 0xFF
	}
	return s
}

// Register bus.

func (s *Simulator) Read8(off uint32) uint8   { return uint8(s.Read32(off)) }
func (s *Simulator) Write8(off uint32, v uint8) {}

func (s *Simulator) Read16(off uint32) uint16 {
	s.mx.Lock()
	defer s.mx.Unlock()
	switch off {
	case regCTRLA:
		return s.ctrla
	case regINTFLAG:
		return s.intflag
	case regSTATUS:
		status := statusREADY
		if s.afirst {
			status |= statusAFIRST
		}
		if s.bpdis {
			status |= statusBPDIS
		}
		status |= (uint16(s.bootprot) & statusBOOTPROTMask) << statusBOOTPROTShift
		return status
	}
	return 0
}

func (s *Simulator) Write16(off uint32, v uint16) {
	s.mx.Lock()
	defer s.mx.Unlock()
	switch off {
	case regCTRLA:
		s.ctrla = v
	case regCTRLB:
		s.execute(v)
	case regINTFLAG:
		// Write one to clear.
		s.intflag &^= v
	}
}

func (s *Simulator) Read32(off uint32) uint32 {
	s.mx.Lock()
	defer s.mx.Unlock()
	switch off {
	case regPARAM:
		pages := uint32(len(s.flash)) / PageSize
		return pages&paramNVMPMask | paramPSZ512<<paramPSZShift
	case regADDR:
		return s.addr
	}
	return 0
}

func (s *Simulator) Write32(off uint32, v uint32) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if off == regADDR {
		s.addr = v & addrMask
	}
}

// Flash substrate.

func (s *Simulator) Word(addr uint32) uint32 {
	s.mx.Lock()
	defer s.mx.Unlock()
	if int(addr)+wordSize <= len(s.flash) {
		return binary.LittleEndian.Uint32(s.flash[addr:])
	}
	return s.ram[addr]
}

func (s *Simulator) StoreWord(addr uint32, v uint32) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if int(addr) < len(s.flash) {
		// Page buffer staging. ADDR tracks the last store.
		binary.LittleEndian.PutUint32(s.pageBuf[addr%PageSize:], v)
		s.addr = addr & addrMask
		return
	}
	s.ram[addr] = v
}

func (s *Simulator) Byte(addr uint32) byte {
	s.mx.Lock()
	defer s.mx.Unlock()
	if int(addr) < len(s.flash) {
		return s.flash[addr]
	}
	if b, ok := s.aux[addr]; ok {
		return b
	}
	return 0xFF
}

// execute runs a CTRLB write. A wrong key raises a programming error and the
// command is dropped.
func (s *Simulator) execute(ctrlb uint16) {
	if ctrlb>>ctrlbKeyShift != commandKey {
		s.intflag |= intPROGE
		return
	}
	cmd := Command(ctrlb & ctrlbCmdMask)
	s.issued[cmd]++
	s.intflag |= intDONE
	s.intflag |= s.injected
	s.injected = 0

	switch cmd {
	case CmdPBC:
		for i := range s.pageBuf {
			s.pageBuf[i] = 0xFF
		}
	case CmdWP:
		page := s.addr - s.addr%PageSize
		if int(page)+int(PageSize) > len(s.flash) {
			s.intflag |= intADDRE
			return
		}
		if s.hardwareProtected(page, page+PageSize) {
			s.intflag |= intLOCKE
			return
		}
		// Programming can only clear bits of an erased page.
		for i := uint32(0); i < PageSize; i++ {
			s.flash[page+i] &= s.pageBuf[i]
		}
		// The page buffer comes back erased after every write page.
		for i := range s.pageBuf {
			s.pageBuf[i] = 0xFF
		}
	case CmdEB, CmdEP:
		unit := BlockSize
		if cmd == CmdEP {
			unit = PageSize
		}
		start := s.addr - s.addr%unit
		if int(start)+int(unit) > len(s.flash) {
			s.intflag |= intADDRE
			return
		}
		if s.hardwareProtected(start, start+unit) {
			s.intflag |= intLOCKE
			return
		}
		for i := uint32(0); i < unit; i++ {
			s.flash[start+i] = 0xFF
		}
	case CmdSBPDIS:
		s.bpdis = true
	case CmdCBPDIS:
		s.bpdis = false
	case CmdBKSWRST:
		half := len(s.flash) / 2
		for i := 0; i < half; i++ {
			s.flash[i], s.flash[half+i] = s.flash[half+i], s.flash[i]
		}
		s.afirst = !s.afirst
		s.swapped = true
	}
}

// hardwareProtected mirrors the controller-side bootloader guard.
func (s *Simulator) hardwareProtected(start, end uint32) bool {
	if s.bpdis {
		return false
	}
	bpSpace := 8 * 1024 * (15 - uint32(s.bootprot))
	return bpSpace > 0 && start < bpSpace && end > 0
}

// Test and tooling hooks.

// Issued reports how many times a command has been accepted.
func (s *Simulator) Issued(cmd Command) int {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.issued[cmd]
}

// TotalIssued reports the number of accepted commands of any kind.
func (s *Simulator) TotalIssued() int {
	s.mx.Lock()
	defer s.mx.Unlock()
	total := 0
	for _, n := range s.issued {
		total += n
	}
	return total
}

// ResetCounters clears the per-command counters.
func (s *Simulator) ResetCounters() {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.issued = make(map[Command]int)
}

// InjectError raises the matching sticky flag after the next accepted command.
func (s *Simulator) InjectError(err PeripheralError) {
	s.mx.Lock()
	defer s.mx.Unlock()
	switch err {
	case AddressError:
		s.injected |= intADDRE
	case LockError:
		s.injected |= intLOCKE
	case ProgrammingError:
		s.injected |= intPROGE
	case ECCSingleError:
		s.injected |= intECCSE
	case ECCDualError:
		s.injected |= intECCDE
	default:
		s.injected |= intNVME
	}
}

// SetBootProt sets the STATUS.BOOTPROT field, 0 to 15.
func (s *Simulator) SetBootProt(field uint8) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.bootprot = field & 0xF
}

// SetBootProtectionDisabled toggles STATUS.BPDIS directly, bypassing the
// command interface.
func (s *Simulator) SetBootProtectionDisabled(disabled bool) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.bpdis = disabled
}

// SetFirstBank sets which physical bank is mapped first.
func (s *Simulator) SetFirstBank(b PhysicalBank) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.afirst = b == PhysicalBankA
}

// BankSwapped reports whether a bank swap command was executed.
func (s *Simulator) BankSwapped() bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.swapped
}

// LoadRAM places source words outside the flash array, addressable through the
// flash substrate as a copy source.
func (s *Simulator) LoadRAM(addr uint32, words []uint32) {
	s.mx.Lock()
	defer s.mx.Unlock()
	for i, w := range words {
		s.ram[addr+uint32(i*wordSize)] = w
	}
}

// LoadUserPage installs a raw 16 byte user page image.
func (s *Simulator) LoadUserPage(buf []byte) error {
	return s.loadAux(userPageAddr, userPageLen, buf)
}

// LoadCalibrationArea installs a raw 6 byte calibration area image.
func (s *Simulator) LoadCalibrationArea(buf []byte) error {
	return s.loadAux(calibAreaAddr, calibAreaLen, buf)
}

// LoadTemperaturesCalibrationArea installs a raw 11 byte temperature
// calibration image.
func (s *Simulator) LoadTemperaturesCalibrationArea(buf []byte) error {
	return s.loadAux(tempCalibAreaAddr, tempCalibAreaLen, buf)
}

func (s *Simulator) loadAux(base uint32, want int, buf []byte) error {
	if len(buf) != want {
		return fmt.Errorf("nvmctrl: fixed region at 0x%08x is %d bytes, got %d", base, want, len(buf))
	}
	s.mx.Lock()
	defer s.mx.Unlock()
	for i, b := range buf {
		s.aux[base+uint32(i)] = b
	}
	return nil
}

// ReadFlash copies n bytes of the flash array starting at addr.
func (s *Simulator) ReadFlash(addr, n uint32) []byte {
	s.mx.Lock()
	defer s.mx.Unlock()
	out := make([]byte, n)
	copy(out, s.flash[addr:])
	return out
}

// Size is the flash array size in bytes.
func (s *Simulator) Size() uint32 {
	s.mx.Lock()
	defer s.mx.Unlock()
	return uint32(len(s.flash))
}
