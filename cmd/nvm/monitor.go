package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/nvm"
	"github.com/mklimuk/nvm/cmd/nvm/console"
	"github.com/mklimuk/nvm/nvmctrl"
)

var monitorCmd = cli.Command{
	Name:  "monitor",
	Usage: "interactive shell for poking at a target",
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
		rl, err := readline.New("nvm> ")
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		defer func() { _ = rl.Close() }()
		mon := monitor{ctrl: ctrl, target: target}
		for {
			line, err := rl.Readline()
			if err == readline.ErrInterrupt || err == io.EOF {
				return nil
			}
			if err != nil {
				return console.Exit(1, "%s", console.Red(err))
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			if fields[0] == "quit" || fields[0] == "exit" {
				return nil
			}
			if err = mon.dispatch(fields[0], fields[1:]); err != nil {
				console.Errorf("%s", err)
			}
		}
	},
}

type monitor struct {
	ctrl   *nvmctrl.Controller
	target nvm.Target
}

func (m *monitor) dispatch(cmd string, args []string) error {
	switch cmd {
	case "help":
		m.help()
		return nil
	case "info":
		return m.info()
	case "read":
		return m.read(args)
	case "erase":
		return m.erase(args)
	case "write":
		return m.write(args)
	case "protect":
		return m.protect(args)
	case "swap":
		console.PInfof(console.PictoSwap, "swapping banks")
		swapAndRecover(m.ctrl)
		console.PInfof(console.PictoFinish, "first mapped bank now: %s", m.ctrl.FirstBank())
		return nil
	case "counters":
		return m.counters()
	}
	return fmt.Errorf("unknown command %q, try help", cmd)
}

func (m *monitor) help() {
	console.Print("commands:")
	console.Print("  info                       geometry and protection state")
	console.Print("  read <addr> <bytes>        dump memory")
	console.Print("  write <addr> <hex>         program flash through the page buffer")
	console.Print("  erase <addr> <len> [page]  erase blocks, or pages on request")
	console.Print("  protect on|off             toggle boot section protection")
	console.Print("  swap                       swap bank mapping and reset")
	console.Print("  counters                   command counters, simulated targets only")
	console.Print("  quit                       leave the shell")
}

func (m *monitor) info() error {
	g := m.ctrl.Geometry()
	console.Printf("flash %d KiB, bank %d KiB, first bank %s, ready %v, boot protected %v\n",
		g.FlashSize/1024, g.BankSize()/1024, m.ctrl.FirstBank(),
		m.ctrl.IsReady(), m.ctrl.IsBootProtected())
	for _, r := range m.ctrl.Reserved() {
		console.Printf("reserved %s\n", r)
	}
	return nil
}

func (m *monitor) read(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: read <addr> <bytes>")
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	n, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return fmt.Errorf("invalid length %q: %w", args[1], err)
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = m.target.Byte(addr + uint32(i))
	}
	console.Print(hex.Dump(buf))
	return nil
}

func (m *monitor) erase(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("usage: erase <addr> <len> [page|block]")
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	length, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return fmt.Errorf("invalid length %q: %w", args[1], err)
	}
	g := nvmctrl.EraseBlock
	if len(args) == 3 {
		if g, err = parseGranularity(args[2]); err != nil {
			return err
		}
	}
	if err = m.ctrl.Erase(addr, uint32(length), g); err != nil {
		return err
	}
	console.PInfof(console.PictoFinish, "erased")
	return nil
}

func (m *monitor) write(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: write <addr> <hex>")
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	buf, err := decodeHex(args[1])
	if err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	words := bytesToWords(buf)
	for i, w := range words {
		m.target.StoreWord(defaultStaging+uint32(i)*4, w)
	}
	if err = m.ctrl.Write(addr, defaultStaging, uint32(len(words))); err != nil {
		return err
	}
	console.PInfof(console.PictoFinish, "wrote %d words", len(words))
	return nil
}

func (m *monitor) protect(args []string) error {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		return fmt.Errorf("usage: protect on|off")
	}
	return m.ctrl.BootProtection(args[0] == "on")
}

func (m *monitor) counters() error {
	sim, ok := m.target.(*nvmctrl.Simulator)
	if !ok {
		return fmt.Errorf("counters are only available on simulated targets")
	}
	console.Printf("total commands issued: %d\n", sim.TotalIssued())
	for _, cmd := range []nvmctrl.Command{
		nvmctrl.CmdEP, nvmctrl.CmdEB, nvmctrl.CmdWP, nvmctrl.CmdPBC,
		nvmctrl.CmdSBPDIS, nvmctrl.CmdCBPDIS, nvmctrl.CmdBKSWRST,
	} {
		if n := sim.Issued(cmd); n > 0 {
			console.Printf("  %s: %d\n", cmd, n)
		}
	}
	return nil
}

func parseAddr(raw string) (uint32, error) {
	v, err := strconv.ParseUint(raw, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", raw, err)
	}
	return uint32(v), nil
}
