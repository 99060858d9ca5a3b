package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/nvm"
	"github.com/mklimuk/nvm/adapter"
	"github.com/mklimuk/nvm/cmd/nvm/console"
	"github.com/mklimuk/nvm/nvmctrl"
)

var targetFlags = []cli.Flag{
	&cli.StringFlag{Name: "sim", Usage: "run against a simulated target described by a YAML profile"},
	&cli.UintFlag{Name: "vid", Usage: "probe USB vendor id", Value: adapter.VendorID},
	&cli.UintFlag{Name: "pid", Usage: "probe USB product id", Value: adapter.ProductID},
}

// simProfile describes a simulated target. Addresses and sizes follow the
// device layout, regions are raw hex dumps.
type simProfile struct {
	Pages              int               `yaml:"pages"`
	BootProt           *uint8            `yaml:"bootprot"`
	ProtectionDisabled bool              `yaml:"protection_disabled"`
	FirstBank          string            `yaml:"first_bank"`
	UserPage           string            `yaml:"user_page"`
	Calibration        string            `yaml:"calibration"`
	Temperatures       string            `yaml:"temperatures"`
	RAM                map[uint32]string `yaml:"ram"`
}

// openTarget resolves the command flags into a register and memory target,
// either a scripted simulator or a CMSIS-DAP probe over HID. The returned
// cleanup must run once the command is done with the target.
func openTarget(c *cli.Context) (nvm.Target, func(), error) {
	if path := c.String("sim"); path != "" {
		sim, err := loadSimProfile(path)
		if err != nil {
			return nil, nil, err
		}
		console.Debugf("simulated target loaded from %s", path)
		return sim, func() {}, nil
	}
	ctx := console.WithTraffic(c.Context, c.Bool("verbose"))
	probe, err := adapter.NewCMSISDAP(ctx, uint16(c.Uint("vid")), uint16(c.Uint("pid")))
	if err != nil {
		return nil, nil, fmt.Errorf("could not open debug probe: %w", err)
	}
	return probe, func() { _ = probe.Close() }, nil
}

func loadSimProfile(path string) (*nvmctrl.Simulator, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read profile %s: %w", path, err)
	}
	var p simProfile
	if err = yaml.Unmarshal(buf, &p); err != nil {
		return nil, fmt.Errorf("could not parse profile %s: %w", path, err)
	}
	pages := p.Pages
	if pages == 0 {
		pages = 2048
	}
	sim := nvmctrl.NewSimulator(pages)
	if p.BootProt != nil {
		sim.SetBootProt(*p.BootProt)
	}
	sim.SetBootProtectionDisabled(p.ProtectionDisabled)
	switch strings.ToLower(p.FirstBank) {
	case "", "a":
	case "b":
		sim.SetFirstBank(nvmctrl.PhysicalBankB)
	default:
		return nil, fmt.Errorf("unknown first bank %q in %s", p.FirstBank, path)
	}
	if err = loadRegion(sim.LoadUserPage, p.UserPage); err != nil {
		return nil, fmt.Errorf("user page in %s: %w", path, err)
	}
	if err = loadRegion(sim.LoadCalibrationArea, p.Calibration); err != nil {
		return nil, fmt.Errorf("calibration area in %s: %w", path, err)
	}
	if err = loadRegion(sim.LoadTemperaturesCalibrationArea, p.Temperatures); err != nil {
		return nil, fmt.Errorf("temperatures area in %s: %w", path, err)
	}
	for addr, raw := range p.RAM {
		buf, err := decodeHex(raw)
		if err != nil {
			return nil, fmt.Errorf("ram block %#x in %s: %w", addr, path, err)
		}
		sim.LoadRAM(addr, bytesToWords(buf))
	}
	return sim, nil
}

func loadRegion(load func([]byte) error, raw string) error {
	if raw == "" {
		return nil
	}
	buf, err := decodeHex(raw)
	if err != nil {
		return err
	}
	return load(buf)
}

func decodeHex(raw string) ([]byte, error) {
	raw = strings.NewReplacer(" ", "", "\n", "", "0x", "", ":", "").Replace(raw)
	return hex.DecodeString(raw)
}

// bytesToWords packs bytes little endian into words, padding the tail
// with erased flash content.
func bytesToWords(buf []byte) []uint32 {
	words := make([]uint32, 0, (len(buf)+3)/4)
	for i := 0; i < len(buf); i += 4 {
		w := uint32(0xFFFF_FFFF)
		for j := 0; j < 4 && i+j < len(buf); j++ {
			w &^= 0xFF << (8 * j)
			w |= uint32(buf[i+j]) << (8 * j)
		}
		words = append(words, w)
	}
	return words
}
