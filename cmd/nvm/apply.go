package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/nvm"
	"github.com/mklimuk/nvm/cmd/nvm/console"
	"github.com/mklimuk/nvm/nvmctrl"
)

// defaultStaging is the RAM address used to stage write payloads on the
// target before handing them to the controller.
const defaultStaging uint32 = 0x2000_4000

type programmingPlan struct {
	Staging uint32     `yaml:"staging"`
	Steps   []planStep `yaml:"steps"`
}

type planStep struct {
	Erase  *eraseStep  `yaml:"erase"`
	Write  *writeStep  `yaml:"write"`
	Verify *verifyStep `yaml:"verify"`
}

type eraseStep struct {
	Address     uint32 `yaml:"address"`
	Length      uint32 `yaml:"length"`
	Granularity string `yaml:"granularity"`
}

type writeStep struct {
	Address uint32 `yaml:"address"`
	Data    string `yaml:"data"`
}

type verifyStep struct {
	Address uint32 `yaml:"address"`
	Data    string `yaml:"data"`
}

var applyCmd = cli.Command{
	Name:      "apply",
	Usage:     "run a programming plan (erase, write, verify steps) against a target",
	ArgsUsage: "<plan.yaml>",
	Flags: append([]cli.Flag{
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
	}, targetFlags...),
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return console.Exit(1, "expected exactly one plan file, got %d arguments", c.NArg())
		}
		plan, err := loadPlan(c.Args().First())
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		describePlan(plan)
		if !c.Bool("yes") {
			answer, err := console.YesOrNo("apply this plan?")
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
		if err = runPlan(ctrl, target, plan); err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		console.PInfof(console.PictoFinish, "plan applied, %d steps", len(plan.Steps))
		return nil
	},
}

func loadPlan(path string) (*programmingPlan, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read plan %s: %w", path, err)
	}
	var plan programmingPlan
	if err = yaml.Unmarshal(buf, &plan); err != nil {
		return nil, fmt.Errorf("could not parse plan %s: %w", path, err)
	}
	if plan.Staging == 0 {
		plan.Staging = defaultStaging
	}
	for i, step := range plan.Steps {
		count := 0
		if step.Erase != nil {
			count++
		}
		if step.Write != nil {
			count++
		}
		if step.Verify != nil {
			count++
		}
		if count != 1 {
			return nil, fmt.Errorf("step %d of %s must have exactly one of erase, write, verify", i+1, path)
		}
		if step.Erase != nil {
			if _, err = parseGranularity(step.Erase.Granularity); err != nil {
				return nil, fmt.Errorf("step %d of %s: %w", i+1, path, err)
			}
		}
	}
	return &plan, nil
}

func parseGranularity(raw string) (nvmctrl.EraseGranularity, error) {
	switch strings.ToLower(raw) {
	case "", "block":
		return nvmctrl.EraseBlock, nil
	case "page":
		return nvmctrl.ErasePage, nil
	}
	return nvmctrl.EraseBlock, fmt.Errorf("unknown erase granularity %q", raw)
}

func describePlan(plan *programmingPlan) {
	for i, step := range plan.Steps {
		switch {
		case step.Erase != nil:
			g, _ := parseGranularity(step.Erase.Granularity)
			console.Printf("%2d. erase  %s..%s (%s)\n", i+1,
				console.Addr(step.Erase.Address), console.Addr(step.Erase.Address+step.Erase.Length), g)
		case step.Write != nil:
			buf, _ := decodeHex(step.Write.Data)
			console.Printf("%2d. write  %s, %d bytes\n", i+1, console.Addr(step.Write.Address), len(buf))
		case step.Verify != nil:
			buf, _ := decodeHex(step.Verify.Data)
			console.Printf("%2d. verify %s, %d bytes\n", i+1, console.Addr(step.Verify.Address), len(buf))
		}
	}
}

func runPlan(ctrl *nvmctrl.Controller, target nvm.Target, plan *programmingPlan) error {
	for i, step := range plan.Steps {
		var err error
		switch {
		case step.Erase != nil:
			err = runErase(ctrl, step.Erase)
		case step.Write != nil:
			err = runWrite(ctrl, target, plan.Staging, step.Write)
		case step.Verify != nil:
			err = runVerify(target, step.Verify)
		}
		if err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

func runErase(ctrl *nvmctrl.Controller, step *eraseStep) error {
	g, err := parseGranularity(step.Granularity)
	if err != nil {
		return err
	}
	console.PInfof(console.PictoChip, "erasing %#08x..%#08x", step.Address, step.Address+step.Length)
	return ctrl.Erase(step.Address, step.Length, g)
}

func runWrite(ctrl *nvmctrl.Controller, target nvm.Target, staging uint32, step *writeStep) error {
	buf, err := decodeHex(step.Data)
	if err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	words := bytesToWords(buf)
	for i, w := range words {
		target.StoreWord(staging+uint32(i)*4, w)
	}
	console.PInfof(console.PictoMemory, "writing %d words at %#08x", len(words), step.Address)
	return ctrl.Write(step.Address, staging, uint32(len(words)))
}

func runVerify(target nvm.Target, step *verifyStep) error {
	want, err := decodeHex(step.Data)
	if err != nil {
		return fmt.Errorf("verify payload: %w", err)
	}
	got := make([]byte, 0, len(want))
	for off := uint32(0); off < uint32(len(want)); off++ {
		got = append(got, target.Byte(step.Address+off))
	}
	if !bytes.Equal(got, want) {
		return fmt.Errorf("verify failed at %#08x", step.Address)
	}
	console.PInfof(console.PictoFinish, "verified %d bytes at %#08x", len(want), step.Address)
	return nil
}
