package main

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/nvm/cmd/nvm/console"
	"github.com/mklimuk/nvm/nvmctrl"
	"github.com/mklimuk/nvm/seeprom"
)

var infoCmd = cli.Command{
	Name:  "info",
	Usage: "print controller geometry, protection state and fuse summary",
	Flags: targetFlags,
	Action: func(c *cli.Context) error {
		target, cleanup, err := openTarget(c)
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		defer cleanup()
		ctrl, err := nvmctrl.Open(target)
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		defer ctrl.Release()

		g := ctrl.Geometry()
		console.PInfof(console.PictoChip, "flash size: %d KiB (%d pages of %d bytes)",
			g.FlashSize/1024, g.FlashSize/nvmctrl.PageSize, nvmctrl.PageSize)
		console.PInfof(console.PictoChip, "bank size: %d KiB", g.BankSize()/1024)
		console.PInfof(console.PictoSwap, "first mapped bank: %s", ctrl.FirstBank())
		console.PInfof(console.PictoBolt, "controller ready: %v", ctrl.IsReady())
		if ctrl.IsBootProtected() {
			console.PInfof(console.PictoStop, "boot section protection is active")
		} else {
			console.PInfof(console.PictoKey, "boot section protection is disabled")
		}

		see, err := seeprom.Retrieve(ctrl)
		switch {
		case errors.Is(err, seeprom.ErrDisabled):
			console.PInfof(console.PictoMemory, "SmartEEPROM: disabled")
		case err != nil:
			console.Warnf("could not read SmartEEPROM layout: %s", err)
		default:
			console.PInfof(console.PictoMemory, "SmartEEPROM: %d blocks, %d byte pages",
				see.Blocks(), see.PageSize())
		}
		for _, r := range ctrl.Reserved() {
			console.PInfof(console.PictoStop, "reserved range: %s", r)
		}

		console.Print(console.Bold("user page"))
		printUserPage(ctrl.UserPage())
		return nil
	},
}
