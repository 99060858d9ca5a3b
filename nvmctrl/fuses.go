package nvmctrl

import (
	"fmt"

	"github.com/mklimuk/nvm"
)

// The factory and user rows are decoded into plain value types with named
// bit-range accessors. Each read takes a fresh byte-by-byte snapshot of the
// fixed physical region; nothing is cached and no command is involved.

// fuseBits is a little-endian accumulator of up to 128 bits.
type fuseBits struct {
	lo, hi uint64
}

// readFixedRegion reads n bytes from a fixed physical address, accumulating
// them little-endian.
func readFixedRegion(mem nvm.Flash, base uint32, n uint32) fuseBits {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = mem.Byte(base + uint32(i))
	}
	return accumulate(buf)
}

// bits extracts the inclusive bit range [hiBit:loBit].
func (f fuseBits) bits(hiBit, loBit uint) uint32 {
	width := hiBit - loBit + 1
	var v uint64
	switch {
	case loBit >= 64:
		v = f.hi >> (loBit - 64)
	case hiBit < 64:
		v = f.lo >> loBit
	default:
		v = f.lo>>loBit | f.hi<<(64-loBit)
	}
	return uint32(v & (1<<width - 1))
}

// flag extracts a single bit.
func (f fuseBits) flag(pos uint) bool {
	return f.bits(pos, pos) != 0
}

// UserPage is a snapshot of the 16 byte NVM user page at its fixed physical
// address. It holds the brown-out detector, watchdog, boot protection size and
// SmartEEPROM layout fuses.
type UserPage struct {
	raw fuseBits
}

// ParseUserPage decodes a raw 16 byte user page image, as read from the device
// or from a dump.
func ParseUserPage(buf []byte) (UserPage, error) {
	if len(buf) != userPageLen {
		return UserPage{}, fmt.Errorf("nvmctrl: user page is %d bytes, got %d", userPageLen, len(buf))
	}
	return UserPage{raw: accumulate(buf)}, nil
}

func accumulate(buf []byte) fuseBits {
	var f fuseBits
	for i, b := range buf {
		if i < 8 {
			f.lo |= uint64(b) << (8 * i)
		} else {
			f.hi |= uint64(b) << (8 * (i - 8))
		}
	}
	return f
}

// UserPage reads the user page from its fixed physical address.
func (c *Controller) UserPage() UserPage {
	return UserPage{raw: readFixedRegion(c.mem, userPageAddr, userPageLen)}
}

func (p UserPage) BOD33Disable() bool         { return p.raw.flag(0) }
func (p UserPage) BOD33Level() uint32         { return p.raw.bits(8, 1) }
func (p UserPage) BOD33Action() uint32        { return p.raw.bits(10, 9) }
func (p UserPage) BOD33Hysteresis() uint32    { return p.raw.bits(14, 11) }
func (p UserPage) BOD12Calibration() uint32   { return p.raw.bits(25, 12) }
func (p UserPage) NVMBootloaderSize() uint32  { return p.raw.bits(29, 26) }
func (p UserPage) SEEBlocks() uint32          { return p.raw.bits(35, 32) }
func (p UserPage) SEEPageSize() uint32        { return p.raw.bits(38, 36) }
func (p UserPage) RAMECCDisable() bool        { return p.raw.flag(39) }
func (p UserPage) WDTEnable() bool            { return p.raw.flag(48) }
func (p UserPage) WDTAlwaysOn() bool          { return p.raw.flag(49) }
func (p UserPage) WDTPeriod() uint32          { return p.raw.bits(53, 50) }
func (p UserPage) WDTWindow() uint32          { return p.raw.bits(57, 54) }
func (p UserPage) WDTEWOffset() uint32        { return p.raw.bits(61, 58) }
func (p UserPage) WDTWindowEnable() bool      { return p.raw.flag(62) }
func (p UserPage) NVMLocks() uint32           { return p.raw.bits(95, 64) }
func (p UserPage) UserDefined() uint32        { return p.raw.bits(127, 96) }

// CalibrationArea is a snapshot of the analog calibration row: comparator, ADC
// and USB pad trim values fused at the factory.
type CalibrationArea struct {
	raw fuseBits
}

// ParseCalibrationArea decodes a raw 6 byte calibration area image.
func ParseCalibrationArea(buf []byte) (CalibrationArea, error) {
	if len(buf) != calibAreaLen {
		return CalibrationArea{}, fmt.Errorf("nvmctrl: calibration area is %d bytes, got %d", calibAreaLen, len(buf))
	}
	return CalibrationArea{raw: accumulate(buf)}, nil
}

// CalibrationArea reads the analog calibration row from its fixed physical
// address.
func (c *Controller) CalibrationArea() CalibrationArea {
	return CalibrationArea{raw: readFixedRegion(c.mem, calibAreaAddr, calibAreaLen)}
}

func (a CalibrationArea) ACBias() uint32         { return a.raw.bits(1, 0) }
func (a CalibrationArea) ADC0BiasComp() uint32   { return a.raw.bits(4, 2) }
func (a CalibrationArea) ADC0BiasRefBuf() uint32 { return a.raw.bits(7, 5) }
func (a CalibrationArea) ADC0BiasR2R() uint32    { return a.raw.bits(10, 8) }
func (a CalibrationArea) ADC1BiasComp() uint32   { return a.raw.bits(18, 16) }
func (a CalibrationArea) ADC1BiasRefBuf() uint32 { return a.raw.bits(21, 19) }
func (a CalibrationArea) ADC1BiasR2R() uint32    { return a.raw.bits(24, 22) }
func (a CalibrationArea) USBTransN() uint32      { return a.raw.bits(36, 32) }
func (a CalibrationArea) USBTransP() uint32      { return a.raw.bits(41, 37) }
func (a CalibrationArea) USBTrim() uint32        { return a.raw.bits(44, 42) }

// TemperaturesCalibrationArea is a snapshot of the temperature sensor
// calibration row: two calibration points and their voltage readings.
type TemperaturesCalibrationArea struct {
	raw fuseBits
}

// ParseTemperaturesCalibrationArea decodes a raw 11 byte temperature
// calibration image.
func ParseTemperaturesCalibrationArea(buf []byte) (TemperaturesCalibrationArea, error) {
	if len(buf) != tempCalibAreaLen {
		return TemperaturesCalibrationArea{}, fmt.Errorf("nvmctrl: temperatures calibration area is %d bytes, got %d", tempCalibAreaLen, len(buf))
	}
	return TemperaturesCalibrationArea{raw: accumulate(buf)}, nil
}

// TemperaturesCalibrationArea reads the temperature calibration row from its
// fixed physical address.
func (c *Controller) TemperaturesCalibrationArea() TemperaturesCalibrationArea {
	return TemperaturesCalibrationArea{raw: readFixedRegion(c.mem, tempCalibAreaAddr, tempCalibAreaLen)}
}

func (a TemperaturesCalibrationArea) TLI() uint32 { return a.raw.bits(7, 0) }
func (a TemperaturesCalibrationArea) TLD() uint32 { return a.raw.bits(11, 8) }
func (a TemperaturesCalibrationArea) THI() uint32 { return a.raw.bits(19, 12) }
func (a TemperaturesCalibrationArea) THD() uint32 { return a.raw.bits(23, 20) }
func (a TemperaturesCalibrationArea) VPL() uint32 { return a.raw.bits(51, 40) }
func (a TemperaturesCalibrationArea) VPH() uint32 { return a.raw.bits(63, 52) }

// VCL spans bits 75:63; the one bit overlap with VPH matches the device fuse
// map.
func (a TemperaturesCalibrationArea) VCL() uint32 { return a.raw.bits(75, 63) }
func (a TemperaturesCalibrationArea) VCH() uint32 { return a.raw.bits(87, 76) }
