// Package session
// This file is the hub of the `session` package. The `Client` struct defined here
// holds the record service of the running node and interprets user inputs.
package session

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/alpacahq/recordstore/models"
	"github.com/alpacahq/recordstore/store"
)

func NewClient(svc store.Service, role string, out io.Writer) *Client {
	if out == nil {
		out = os.Stdout
	}
	return &Client{
		svc:  svc,
		role: role,
		out:  out,
	}
}

type Client struct {
	svc  store.Service
	role string
	// out receives everything the session prints.
	out io.Writer
}

// Read kicks off the buffer reading process.
func (c *Client) Read() error {
	// Build reader.
	r, err := newReader()
	if err != nil {
		return err
	}
	defer r.Close()

	fmt.Fprintf(c.out, "Connected to the %s record store (%d records)\n", c.role, len(c.svc.Records()))
	fmt.Fprintf(os.Stderr, "Type `\\help` to see command options\n")

	// User input evaluation loop.
	for {
		line, err := r.Readline()

		// Terminate evaluation.
		if errors.Is(err, io.EOF) {
			return nil
		}

		// Printed interrupt prompt.
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}

		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			continue
		}

		if quit := c.Eval(line); quit {
			return nil
		}
	}
}

// Eval runs a single input line and reports whether the session should end.
func (c *Client) Eval(line string) (quit bool) {
	line = strings.TrimSpace(line)

	switch {
	case strings.HasPrefix(line, `\add`):
		c.add(line)
	case strings.HasPrefix(line, `\remove`):
		c.remove(line)
	case strings.HasPrefix(line, `\search`):
		c.search(line)
	case strings.HasPrefix(line, `\show`):
		c.show(line)
	case strings.HasPrefix(line, `\save`):
		c.save()
	case strings.HasPrefix(line, `\load`):
		c.load(line)
	case strings.HasPrefix(line, `\help`) || strings.HasPrefix(line, `\?`):
		c.functionHelp(line)
	case line == "help":
		c.functionHelp(`\help`)
	// Quit.
	case line == `\stop`, line == `\quit`, line == `\q`, line == `exit`:
		return true
	// Nothing to do.
	case line == "":
	default:
		fmt.Fprintf(c.out, "Unknown command %q, see \\help\n", line)
	}
	return false
}

func newReader() (*readline.Instance, error) {
	// Determine history file path.
	usr, err := user.Current()
	if err != nil {
		return nil, errors.New("unable to obtain home directory")
	}
	history := filepath.Join(usr.HomeDir, ".recordstoreReaderHistory")

	// Register commands with autocompletion.
	autoComplete := readline.NewPrefixCompleter(
		readline.PcItem(`\add`),
		readline.PcItem(`\remove`),
		readline.PcItem(`\search`),
		readline.PcItem(`\show`),
		readline.PcItem(`\save`),
		readline.PcItem(`\load`),
		readline.PcItem(`\help`),
		readline.PcItem(`\quit`),
		readline.PcItem(`\q`),
		readline.PcItem(`\?`),
		readline.PcItem(`\stop`),
	)

	config := &readline.Config{
		Prompt:          "\033[31m»\033[0m ",
		HistoryFile:     history,
		AutoComplete:    autoComplete,
		InterruptPrompt: "\nInterrupt, Press Ctrl+D to exit",
		EOFPrompt:       "exit",
	}

	return readline.NewEx(config)
}

func (c *Client) printRecord(r models.Record) {
	fmt.Fprintf(c.out, "%6d  %-20s %-20s %4d\n", r.ID, r.FirstName, r.LastName, r.Age)
}

func (c *Client) printRecords(records []models.Record) {
	fmt.Fprintf(c.out, "%6s  %-20s %-20s %4s\n", "ID", "FirstName", "LastName", "Age")
	fmt.Fprintln(c.out, strings.Repeat("=", 55))
	for _, r := range records {
		c.printRecord(r)
	}
}
