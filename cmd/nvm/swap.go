package main

import (
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/nvm/cmd/nvm/console"
	"github.com/mklimuk/nvm/nvmctrl"
)

var swapCmd = cli.Command{
	Name:  "swap",
	Usage: "swap the flash bank mapping and reset the target",
	Flags: append([]cli.Flag{
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
	}, targetFlags...),
	Action: func(c *cli.Context) error {
		if !c.Bool("yes") {
			answer, err := console.YesOrNo("swap banks and reset the target?")
			if err != nil {
				return console.Exit(1, "%s", console.Red(err))
			}
			if answer != console.Yes {
				console.Info("aborted")
				return nil
			}
		}
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
		console.PInfof(console.PictoSwap, "first mapped bank before swap: %s", ctrl.FirstBank())
		// BankSwap does not return, the target resets out from under
		// the session.
		swapAndRecover(ctrl)
		console.PInfof(console.PictoFinish, "swap issued, first mapped bank now: %s", ctrl.FirstBank())
		return nil
	},
}

func swapAndRecover(ctrl *nvmctrl.Controller) {
	defer func() {
		if r := recover(); r != nil {
			console.Debugf("target reset: %v", r)
		}
	}()
	ctrl.BankSwap()
}
