package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/nvm/cmd/nvm/console"
	"github.com/mklimuk/nvm/nvmctrl"
)

var fuseInputFlags = []cli.Flag{
	&cli.StringFlag{Name: "hex", Usage: "raw region bytes as a hex string"},
	&cli.StringFlag{Name: "file", Usage: "file holding the raw region bytes"},
}

var userPageCmd = cli.Command{
	Name:  "userpage",
	Usage: "decode a 16 byte NVM user page image",
	Flags: fuseInputFlags,
	Action: func(c *cli.Context) error {
		buf, err := fuseInput(c)
		if err != nil {
			return console.Exit(1, "invalid input: %s", console.Red(err))
		}
		page, err := nvmctrl.ParseUserPage(buf)
		if err != nil {
			return console.Exit(1, "decode error: %s", console.Red(err))
		}
		printUserPage(page)
		return nil
	},
}

var calibrationCmd = cli.Command{
	Name:    "calibration",
	Aliases: []string{"calib"},
	Usage:   "decode a 6 byte analog calibration area image",
	Flags:   fuseInputFlags,
	Action: func(c *cli.Context) error {
		buf, err := fuseInput(c)
		if err != nil {
			return console.Exit(1, "invalid input: %s", console.Red(err))
		}
		area, err := nvmctrl.ParseCalibrationArea(buf)
		if err != nil {
			return console.Exit(1, "decode error: %s", console.Red(err))
		}
		console.PInfof(console.PictoBolt, "AC bias: %d", area.ACBias())
		console.PInfof(console.PictoBolt, "ADC0 bias comp/refbuf/r2r: %d/%d/%d",
			area.ADC0BiasComp(), area.ADC0BiasRefBuf(), area.ADC0BiasR2R())
		console.PInfof(console.PictoBolt, "ADC1 bias comp/refbuf/r2r: %d/%d/%d",
			area.ADC1BiasComp(), area.ADC1BiasRefBuf(), area.ADC1BiasR2R())
		console.PInfof(console.PictoBolt, "USB transn/transp/trim: %d/%d/%d",
			area.USBTransN(), area.USBTransP(), area.USBTrim())
		return nil
	},
}

var temperaturesCmd = cli.Command{
	Name:    "temperatures",
	Aliases: []string{"temps"},
	Usage:   "decode an 11 byte temperature calibration area image",
	Flags:   fuseInputFlags,
	Action: func(c *cli.Context) error {
		buf, err := fuseInput(c)
		if err != nil {
			return console.Exit(1, "invalid input: %s", console.Red(err))
		}
		area, err := nvmctrl.ParseTemperaturesCalibrationArea(buf)
		if err != nil {
			return console.Exit(1, "decode error: %s", console.Red(err))
		}
		console.Printf("calibration point low:  T=%d.%d\n", area.TLI(), area.TLD())
		console.Printf("calibration point high: T=%d.%d\n", area.THI(), area.THD())
		console.Printf("voltages: VPL=%d VPH=%d VCL=%d VCH=%d\n",
			area.VPL(), area.VPH(), area.VCL(), area.VCH())
		return nil
	},
}

func fuseInput(c *cli.Context) ([]byte, error) {
	if raw := c.String("hex"); raw != "" {
		buf, err := decodeHex(raw)
		if err != nil {
			return nil, fmt.Errorf("could not parse hex string: %w", err)
		}
		return buf, nil
	}
	if path := c.String("file"); path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("could not read %s: %w", path, err)
		}
		return buf, nil
	}
	return nil, fmt.Errorf("one of --hex or --file is required")
}

func printUserPage(page nvmctrl.UserPage) {
	console.PInfof(console.PictoKey, "BOD33: disable=%v level=%d action=%d hysteresis=%d",
		page.BOD33Disable(), page.BOD33Level(), page.BOD33Action(), page.BOD33Hysteresis())
	console.PInfof(console.PictoKey, "BOD12 calibration: %#x", page.BOD12Calibration())
	console.PInfof(console.PictoPin, "bootloader size field: %d", page.NVMBootloaderSize())
	console.PInfof(console.PictoMemory, "SmartEEPROM: blocks=%d page size field=%d",
		page.SEEBlocks(), page.SEEPageSize())
	console.PInfof(console.PictoChip, "RAM ECC disable: %v", page.RAMECCDisable())
	console.PInfof(console.PictoChip, "WDT: enable=%v always-on=%v period=%d window=%d ewoffset=%d wen=%v",
		page.WDTEnable(), page.WDTAlwaysOn(), page.WDTPeriod(),
		page.WDTWindow(), page.WDTEWOffset(), page.WDTWindowEnable())
	console.PInfof(console.PictoStop, "NVM locks: %#08x", page.NVMLocks())
	console.PInfof(console.PictoPin, "user defined: %#08x", page.UserDefined())
}
