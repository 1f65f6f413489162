package session

import (
	"fmt"
	"os"
	"strings"

	"github.com/gobwas/glob"
	"github.com/gocarina/gocsv"
	"github.com/jessevdk/go-flags"

	"github.com/alpacahq/recordstore/models"
)

// \show [Options]
type Opts struct {
	flags.Usage

	// Glob matched against "<first name> <last name>"
	Name string `short:"n" long:"name" description:"Only records whose full name matches the glob, e.g. Al*"`
	// Result export to file
	ExportToFile string `long:"export" description:"Export the result to a CSV file" value-name:"FILE"`
}

// show lists the records in insertion order.
func (c *Client) show(line string) {
	opts, ok := c.parseShow(strings.Fields(line)[1:])
	if !ok {
		return
	}

	records := c.svc.Records()
	if opts.Name != "" {
		g, err := glob.Compile(opts.Name)
		if err != nil {
			fmt.Fprintf(c.out, "Invalid name pattern %q: %v\n", opts.Name, err)
			return
		}
		filtered := records[:0]
		for _, r := range records {
			if g.Match(r.FirstName + " " + r.LastName) {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	if opts.ExportToFile != "" {
		if err := exportCSV(opts.ExportToFile, records); err != nil {
			fmt.Fprintln(c.out, err)
			return
		}
		fmt.Fprintf(c.out, "Exported %d records to %s\n", len(records), opts.ExportToFile)
		return
	}

	if len(records) == 0 {
		fmt.Fprintln(c.out, "No results")
		return
	}
	c.printRecords(records)
}

func (c *Client) parseShow(args []string) (*Opts, bool) {
	opts := &Opts{}

	p := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	p.Usage = ">> \\show [Options]"
	p.LongDescription = `Examples:

	All records:
		>>\show
	Filter by name:
		>>\show --name Al*
	Export to file:
		>>\show --name Al* --export=/path/to/export.csv`

	rest, err := p.ParseArgs(args)
	if err != nil {
		fmt.Fprintln(c.out, err)
		return nil, false
	}
	if len(rest) != 0 {
		fmt.Fprintf(c.out, "Unexpected arguments %v, see \"\\show --help\"\n", rest)
		return nil, false
	}
	return opts, true
}

func exportCSV(path string, records []models.Record) error {
	const perm = 0o644
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.MarshalFile(&records, f)
}
