package session

import (
	"fmt"
	"os"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/alpacahq/recordstore/models"
)

// load adds every row of a CSV file as one batch: \load <csv input file>
// The header names the columns (first_name, last_name, age); an id column is
// ignored since the master assigns ids.
func (c *Client) load(line string) {
	args := strings.Fields(line)[1:]
	if len(args) != 1 {
		fmt.Fprintln(c.out, `Syntax: \load <csv input file>`)
		return
	}

	f, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Failed to open %s: %v\n", args[0], err)
		return
	}
	defer f.Close()

	var records []*models.Record
	if err = gocsv.UnmarshalFile(f, &records); err != nil {
		fmt.Fprintf(c.out, "Failed to parse %s: %v\n", args[0], err)
		return
	}
	if len(records) == 0 {
		fmt.Fprintln(c.out, "No records to load")
		return
	}

	if err = c.svc.AddBatch(records...); err != nil {
		fmt.Fprintln(c.out, err)
		return
	}
	fmt.Fprintf(c.out, "Loaded %d records (ids %d-%d)\n", len(records), records[0].ID, records[len(records)-1].ID)
}
