// Command p9shell is an interactive 9P2000.L client: it dials a p9srv
// instance, attaches, and offers a liner-driven REPL (walk/ls/cat/write/
// stat/rm/mkdir) over the connection, the way cmd/minimega's cliLocal
// wraps a liner.State around minicli command dispatch.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/sandia-minimega/ninep2000l/pkg/minilog"
	"github.com/sandia-minimega/ninep2000l/pkg/p9"
)

var (
	addr  = flag.String("addr", "127.0.0.1:5640", "p9srv address")
	uname = flag.String("uname", "nobody", "attach username")
	level = flag.String("level", "warn", "minilog level")
)

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".p9shell_history")
}

func main() {
	flag.Parse()
	minilog.AddLogger("stderr", os.Stderr, minilog.LevelInt(*level), false)

	c, err := dial(*addr)
	if err != nil {
		minilog.Fatal("dial %s: %v", *addr, err)
	}
	defer c.close()

	if err := c.attach(*uname); err != nil {
		minilog.Fatal("attach: %v", err)
	}

	input := liner.NewLiner()
	defer input.Close()
	input.SetCtrlCAborts(true)

	if hp := historyPath(); hp != "" {
		if f, err := os.Open(hp); err == nil {
			input.ReadHistory(f)
			f.Close()
		}
	}

	for {
		line, err := input.Prompt("p9> ")
		if err == liner.ErrPromptAborted {
			continue
		} else if err == io.EOF {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		input.AppendHistory(line)

		fields := strings.Fields(line)
		if err := runCommand(c, input, fields); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}

	if hp := historyPath(); hp != "" {
		if f, err := os.Create(hp); err == nil {
			input.WriteHistory(f)
			f.Close()
		}
	}
}

// nextFid hands out fids above rootFid for one-shot command use; this
// shell never reuses a fid across commands, it clunks at the end of each.
var fidCounter uint32 = rootFid

func nextFid() uint32 {
	fidCounter++
	return fidCounter
}

// walkTo clones rootFid down to path's components and returns the fid of
// the final element. Caller must clunk the returned fid.
func walkTo(c *client, p string) (uint32, error) {
	fid := nextFid()
	names := splitClean(p)
	_, err := c.rpc(&p9.Twalk{Fid: rootFid, NewFid: fid, Wnames: names})
	if err != nil {
		return 0, err
	}
	return fid, nil
}

func splitClean(p string) []string {
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "" || p == "." {
		return nil
	}
	return strings.Split(p, "/")
}

func clunk(c *client, fid uint32) {
	c.rpc(&p9.Tclunk{Fid: fid})
}

func runCommand(c *client, input *liner.State, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "walk":
		if len(args) != 1 {
			return fmt.Errorf("usage: walk <path>")
		}
		fid, err := walkTo(c, args[0])
		if err != nil {
			return err
		}
		defer clunk(c, fid)
		fmt.Printf("ok\n")
		return nil

	case "ls":
		p := "/"
		if len(args) == 1 {
			p = args[0]
		}
		return doLs(c, p)

	case "cat":
		if len(args) != 1 {
			return fmt.Errorf("usage: cat <path>")
		}
		return doCat(c, args[0])

	case "write":
		if len(args) != 1 {
			return fmt.Errorf("usage: write <path>")
		}
		content, err := input.Prompt("content> ")
		if err != nil {
			return err
		}
		return doWrite(c, args[0], []byte(content))

	case "stat":
		if len(args) != 1 {
			return fmt.Errorf("usage: stat <path>")
		}
		return doStat(c, args[0])

	case "rm":
		if len(args) != 1 {
			return fmt.Errorf("usage: rm <path>")
		}
		fid, err := walkTo(c, args[0])
		if err != nil {
			return err
		}
		_, err = c.rpc(&p9.Tremove{Fid: fid})
		return err

	case "mkdir":
		if len(args) != 1 {
			return fmt.Errorf("usage: mkdir <path>")
		}
		return doMkdir(c, args[0])

	case "help":
		fmt.Println("commands: walk ls cat write stat rm mkdir help quit")
		return nil

	case "quit", "exit":
		os.Exit(0)
		return nil

	default:
		return fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
}

func doLs(c *client, p string) error {
	fid, err := walkTo(c, p)
	if err != nil {
		return err
	}
	defer clunk(c, fid)

	if _, err := c.rpc(&p9.Tlopen{Fid: fid, Mode: 0}); err != nil {
		return err
	}

	var offset uint64
	for {
		r, err := c.rpc(&p9.Treaddir{Fid: fid, Offset: offset, Count: c.msize - 32})
		if err != nil {
			return err
		}
		rd := r.(*p9.Rreaddir)
		if len(rd.Data) == 0 {
			return nil
		}
		dirents, err := p9.DecodeDirents(rd.Data)
		if err != nil {
			return err
		}
		for _, d := range dirents {
			fmt.Printf("%-20s %v\n", d.Name, d.Qid)
			offset = d.Offset
		}
	}
}

func doCat(c *client, p string) error {
	fid, err := walkTo(c, p)
	if err != nil {
		return err
	}
	defer clunk(c, fid)

	if _, err := c.rpc(&p9.Tlopen{Fid: fid, Mode: 0}); err != nil {
		return err
	}

	var offset uint64
	for {
		r, err := c.rpc(&p9.Tread{Fid: fid, Offset: offset, Count: c.msize - 32})
		if err != nil {
			return err
		}
		data := r.(*p9.Rread).Data
		if len(data) == 0 {
			return nil
		}
		os.Stdout.Write(data)
		offset += uint64(len(data))
	}
}

func doWrite(c *client, p string, content []byte) error {
	dir, name := path.Split(p)
	dfid, err := walkTo(c, dir)
	if err != nil {
		return err
	}
	defer clunk(c, dfid)

	_, err = c.rpc(&p9.Tlcreate{Fid: dfid, Name: name, Flags: 0, Mode: 0644, Gid: 0})
	if err != nil {
		// Fall back to opening an existing file if create failed because
		// it already exists.
		fid, werr := walkTo(c, p)
		if werr != nil {
			return err
		}
		defer clunk(c, fid)
		if _, werr := c.rpc(&p9.Tlopen{Fid: fid, Mode: 1}); werr != nil {
			return werr
		}
		_, werr = c.rpc(&p9.Twrite{Fid: fid, Offset: 0, Data: content})
		return werr
	}

	_, err = c.rpc(&p9.Twrite{Fid: dfid, Offset: 0, Data: content})
	return err
}

func doStat(c *client, p string) error {
	fid, err := walkTo(c, p)
	if err != nil {
		return err
	}
	defer clunk(c, fid)

	r, err := c.rpc(&p9.Tgetattr{Fid: fid, RequestMask: p9.GetattrAll})
	if err != nil {
		return err
	}
	ga := r.(*p9.Rgetattr)
	fmt.Printf("qid=%v mode=%#o uid=%d gid=%d size=%d nlink=%d\n",
		ga.Qid, ga.Mode, ga.Uid, ga.Gid, ga.Size, ga.Nlink)
	return nil
}

func doMkdir(c *client, p string) error {
	dir, name := path.Split(p)
	dfid, err := walkTo(c, dir)
	if err != nil {
		return err
	}
	defer clunk(c, dfid)

	_, err = c.rpc(&p9.Tmkdir{Fid: dfid, Name: name, Mode: 0755, Gid: 0})
	return err
}
