// Package adapter provides host side access to the NVM controller through a
// CMSIS-DAP debug probe. The probe bridges USB HID reports to the SWD debug
// port, and the memory access port behind it reaches the peripheral registers
// and the flash address space of the running target.
package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/mklimuk/nvm"
	"github.com/mklimuk/nvm/cmd/nvm/console"
)

// Default USB identification of an onboard CMSIS-DAP debugger.
const (
	VendorID  = 0x03EB
	ProductID = 0x2141
)

var ErrProbeNotFound = errors.New("CMSIS-DAP probe not found")
var ErrProbeStatus = errors.New("probe rejected the command")
var ErrTransferFault = errors.New("SWD transfer fault")

// CMSIS-DAP protocol command bytes.
const (
	dapCmdConnect           = 0x02
	dapCmdDisconnect        = 0x03
	dapCmdTransferConfigure = 0x04
	dapCmdTransfer          = 0x05
	dapCmdSWJClock          = 0x11
	dapCmdSWJSequence       = 0x12

	dapOK      = 0x00
	dapPortSWD = 0x01

	transferAPnDP = 0x01
	transferRnW   = 0x02
	ackOK         = 0x01
)

// Debug port and memory access port registers.
const (
	dpABORT    = 0x00
	dpCTRLSTAT = 0x04
	dpSELECT   = 0x08

	apCSW = 0x00
	apTAR = 0x04
	apDRW = 0x0C

	abortClearSticky = 0x0000001E
	ctrlStatPowerUp  = 0x50000000
	ctrlStatPowerAck = 0xA0000000

	// CSW with auto increment off; the low bits select the access size.
	cswBase     uint32 = 0x2300_0000
	cswSizeByte uint32 = 0x0
	cswSizeHalf uint32 = 0x1
	cswSizeWord uint32 = 0x2
)

// nvmctrlBase is the physical base of the register block on the target.
const nvmctrlBase uint32 = 0x4100_4000

// transport is the raw HID report pipe, separated for tests.
type transport interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
	Close() error
}

var _ nvm.Target = &CMSISDAP{}

// CMSISDAP talks to a target through a CMSIS-DAP probe. Register and flash
// accesses are infallible by interface contract; a transport failure is
// latched and every later access short circuits until Err is checked.
type CMSISDAP struct {
	mx           sync.Mutex
	dev          transport
	request      []byte
	response     []byte
	responseWait time.Duration

	cswSize uint32
	err     error
}

// NewCMSISDAP opens the first matching probe and brings up the SWD link and
// the memory access port.
func NewCMSISDAP(ctx context.Context, vendorID, productID uint16) (*CMSISDAP, error) {
	devs := hid.Enumerate(vendorID, productID)
	if len(devs) == 0 {
		return nil, ErrProbeNotFound
	}
	dev, err := devs[0].Open()
	if err != nil {
		return nil, fmt.Errorf("error opening probe: %w", err)
	}
	d := &CMSISDAP{
		dev:          dev,
		request:      make([]byte, 64),
		response:     make([]byte, 64),
		responseWait: 10 * time.Millisecond,
		cswSize:      cswSizeWord,
	}
	if err := d.init(ctx); err != nil {
		_ = dev.Close()
		return nil, err
	}
	return d, nil
}

// init connects SWD, powers up the debug domain and configures the memory
// access port for explicit addressing.
func (d *CMSISDAP) init(ctx context.Context) error {
	d.mx.Lock()
	defer d.mx.Unlock()

	// 1 MHz SWD clock.
	d.resetBuffers()
	d.request[0] = dapCmdSWJClock
	binary.LittleEndian.PutUint32(d.request[1:5], 1_000_000)
	if err := d.send(ctx); err != nil {
		return fmt.Errorf("clock setup failed: %w", err)
	}

	d.resetBuffers()
	d.request[0] = dapCmdConnect
	d.request[1] = dapPortSWD
	if err := d.send(ctx); err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}
	if d.response[1] != dapPortSWD {
		return fmt.Errorf("connect: %w", ErrProbeStatus)
	}

	// Line reset, JTAG to SWD switch, line reset, idle.
	seq := []byte{
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
		0x9E, 0xE7,
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
		0x00,
	}
	d.resetBuffers()
	d.request[0] = dapCmdSWJSequence
	d.request[1] = byte(len(seq) * 8)
	copy(d.request[2:], seq)
	if err := d.send(ctx); err != nil {
		return fmt.Errorf("SWJ sequence failed: %w", err)
	}
	if d.response[1] != dapOK {
		return fmt.Errorf("SWJ sequence: %w", ErrProbeStatus)
	}

	d.resetBuffers()
	d.request[0] = dapCmdTransferConfigure
	d.request[1] = 0x00                                // idle cycles
	binary.LittleEndian.PutUint16(d.request[2:4], 64)  // WAIT retries
	binary.LittleEndian.PutUint16(d.request[4:6], 0)   // match retries
	if err := d.send(ctx); err != nil {
		return fmt.Errorf("transfer configure failed: %w", err)
	}

	if err := d.dpWrite(ctx, dpABORT, abortClearSticky); err != nil {
		return fmt.Errorf("sticky flag clear failed: %w", err)
	}
	if err := d.dpWrite(ctx, dpSELECT, 0); err != nil {
		return fmt.Errorf("AP select failed: %w", err)
	}
	if err := d.dpWrite(ctx, dpCTRLSTAT, ctrlStatPowerUp); err != nil {
		return fmt.Errorf("debug power up failed: %w", err)
	}
	stat, err := d.dpRead(ctx, dpCTRLSTAT)
	if err != nil {
		return fmt.Errorf("debug power up check failed: %w", err)
	}
	if stat&ctrlStatPowerAck != ctrlStatPowerAck {
		return fmt.Errorf("debug domain did not power up: %w", ErrProbeStatus)
	}
	return d.apWrite(ctx, apCSW, cswBase|cswSizeWord)
}

// Close drops the SWD connection and releases the probe.
func (d *CMSISDAP) Close() error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = dapCmdDisconnect
	_ = d.send(context.Background())
	return d.dev.Close()
}

// Err reports a latched transport failure, if any.
func (d *CMSISDAP) Err() error {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.err
}

// transfer runs a single DAP transfer and returns the read value for read
// requests.
func (d *CMSISDAP) transfer(ctx context.Context, req byte, value uint32) (uint32, error) {
	d.resetBuffers()
	d.request[0] = dapCmdTransfer
	d.request[1] = 0x00 // DAP index
	d.request[2] = 0x01 // transfer count
	d.request[3] = req
	if req&transferRnW == 0 {
		binary.LittleEndian.PutUint32(d.request[4:8], value)
	}
	if err := d.send(ctx); err != nil {
		return 0, err
	}
	if d.response[1] != 1 || d.response[2] != ackOK {
		return 0, fmt.Errorf("ack %#02x: %w", d.response[2], ErrTransferFault)
	}
	if req&transferRnW != 0 {
		return binary.LittleEndian.Uint32(d.response[3:7]), nil
	}
	return 0, nil
}

func (d *CMSISDAP) dpRead(ctx context.Context, reg byte) (uint32, error) {
	return d.transfer(ctx, reg&0x0C|transferRnW, 0)
}

func (d *CMSISDAP) dpWrite(ctx context.Context, reg byte, value uint32) error {
	_, err := d.transfer(ctx, reg&0x0C, value)
	return err
}

func (d *CMSISDAP) apRead(ctx context.Context, reg byte) (uint32, error) {
	return d.transfer(ctx, reg&0x0C|transferAPnDP|transferRnW, 0)
}

func (d *CMSISDAP) apWrite(ctx context.Context, reg byte, value uint32) error {
	_, err := d.transfer(ctx, reg&0x0C|transferAPnDP, value)
	return err
}

// setAccessSize reconfigures CSW when the access width changes.
func (d *CMSISDAP) setAccessSize(ctx context.Context, size uint32) error {
	if d.cswSize == size {
		return nil
	}
	if err := d.apWrite(ctx, apCSW, cswBase|size); err != nil {
		return err
	}
	d.cswSize = size
	return nil
}

// memRead reads one value of the given size from an absolute target address.
// The value arrives on the byte lane matching the address.
func (d *CMSISDAP) memRead(ctx context.Context, addr, size uint32) (uint32, error) {
	if err := d.setAccessSize(ctx, size); err != nil {
		return 0, err
	}
	if err := d.apWrite(ctx, apTAR, addr); err != nil {
		return 0, err
	}
	v, err := d.apRead(ctx, apDRW)
	if err != nil {
		return 0, err
	}
	return v >> ((addr & 0x3) * 8), nil
}

func (d *CMSISDAP) memWrite(ctx context.Context, addr, size, value uint32) error {
	if err := d.setAccessSize(ctx, size); err != nil {
		return err
	}
	if err := d.apWrite(ctx, apTAR, addr); err != nil {
		return err
	}
	return d.apWrite(ctx, apDRW, value<<((addr&0x3)*8))
}

// fail latches a transport error. Every later access short circuits.
func (d *CMSISDAP) fail(err error) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: %w", nvm.ErrBusUnavailable, err)
	}
}

func (d *CMSISDAP) read(addr, size uint32) uint32 {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.err != nil {
		return 0xFFFF_FFFF
	}
	v, err := d.memRead(context.Background(), addr, size)
	if err != nil {
		d.fail(err)
		return 0xFFFF_FFFF
	}
	return v
}

func (d *CMSISDAP) write(addr, size, value uint32) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.err != nil {
		return
	}
	if err := d.memWrite(context.Background(), addr, size, value); err != nil {
		d.fail(err)
	}
}

// Register bus over the memory access port.

func (d *CMSISDAP) Read8(off uint32) uint8 {
	return uint8(d.read(nvmctrlBase+off, cswSizeByte))
}

func (d *CMSISDAP) Read16(off uint32) uint16 {
	return uint16(d.read(nvmctrlBase+off, cswSizeHalf))
}

func (d *CMSISDAP) Read32(off uint32) uint32 {
	return d.read(nvmctrlBase+off, cswSizeWord)
}

func (d *CMSISDAP) Write8(off uint32, value uint8) {
	d.write(nvmctrlBase+off, cswSizeByte, uint32(value))
}

func (d *CMSISDAP) Write16(off uint32, value uint16) {
	d.write(nvmctrlBase+off, cswSizeHalf, uint32(value))
}

func (d *CMSISDAP) Write32(off uint32, value uint32) {
	d.write(nvmctrlBase+off, cswSizeWord, value)
}

// Flash address space over the memory access port.

func (d *CMSISDAP) Word(addr uint32) uint32 {
	return d.read(addr, cswSizeWord)
}

func (d *CMSISDAP) StoreWord(addr uint32, value uint32) {
	d.write(addr, cswSizeWord, value)
}

func (d *CMSISDAP) Byte(addr uint32) byte {
	return byte(d.read(addr, cswSizeByte))
}

// send pushes the request report and pulls the matching response.
func (d *CMSISDAP) send(ctx context.Context) error {
	if console.DumpTraffic(ctx) {
		console.Printf("sending report to probe:\n%s\n", hex.Dump(d.request))
	}
	n, err := d.dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != len(d.request) {
		return fmt.Errorf("short write: %d", n)
	}
	time.Sleep(d.responseWait)
	n, err = d.dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("empty response")
	}
	if d.response[0] != d.request[0] {
		return fmt.Errorf("response command mismatch: %#02x", d.response[0])
	}
	if console.DumpTraffic(ctx) {
		console.Printf("read report from probe:\n%s\n", hex.Dump(d.response))
	}
	return nil
}

func (d *CMSISDAP) resetBuffers() {
	resetBuffer(d.request)
	resetBuffer(d.response)
}

func resetBuffer(buf []byte) {
	for i := range buf {
		buf[i] = 0x00
	}
}
