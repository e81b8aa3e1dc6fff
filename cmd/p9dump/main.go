// Command p9dump reads a stream of framed 9P2000.L messages from a file
// or stdin and pretty-prints them, stopping at the first truncated or
// malformed frame rather than erroring further, the way ufs.go's -trace
// flag prints without ever touching the wire itself.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/sandia-minimega/ninep2000l/pkg/minilog"
	"github.com/sandia-minimega/ninep2000l/pkg/p9"
)

var (
	useColor = flag.Bool("color", false, "colorize T/R/Rlerror lines")
	level    = flag.String("level", "warn", "minilog level")
)

func main() {
	flag.Parse()
	minilog.AddLogger("stderr", os.Stderr, minilog.LevelInt(*level), true)

	args := flag.Args()
	path := "-"
	if len(args) > 0 {
		path = args[0]
	}

	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			minilog.Fatal("open %s: %v", path, err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		minilog.Fatal("read %s: %v", path, err)
	}

	cyan := color.New(color.FgHiCyan).SprintFunc()
	green := color.New(color.FgHiGreen).SprintFunc()
	red := color.New(color.FgHiRed).SprintFunc()
	if !*useColor {
		cyan, green, red = noColor, noColor, noColor
	}

	off := 0
	for off < len(data) {
		m, n, err := p9.Decode(data[off:])
		if err != nil {
			fmt.Fprintf(os.Stderr, "p9dump: offset %d: %v\n", off, err)
			return
		}
		if m == nil {
			fmt.Fprintf(os.Stderr, "p9dump: offset %d: truncated frame (%d bytes remain)\n", off, len(data)-off)
			return
		}

		name := m.Type().String()
		var tinted string
		switch {
		case name == "Rlerror":
			tinted = red(name)
		case name != "" && name[0] == 'R':
			tinted = green(name)
		default:
			tinted = cyan(name)
		}
		fmt.Printf("[%5d] tag=%d %s %+v\n", off, m.GetTag(), tinted, m)
		off += n
	}
}

func noColor(args ...interface{}) string {
	return fmt.Sprint(args...)
}
