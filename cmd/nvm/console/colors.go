package console

import (
	"fmt"

	"github.com/fatih/color"
)

// ANSI helpers for command output
var (
	Yellow = color.New(color.FgYellow).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	White  = color.New(color.FgHiWhite).SprintFunc()
	Bold   = color.New(color.Bold).SprintFunc()
)

// Addr renders a flash address the way the datasheet memory map prints them.
func Addr(v uint32) string {
	return Bold(fmt.Sprintf("%#08x", v))
}
