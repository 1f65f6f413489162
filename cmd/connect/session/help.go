package session

import (
	"fmt"
	"strings"
)

// functionHelp prints helpful information about specific commands.
func (c *Client) functionHelp(line string) {
	args := strings.Fields(line)
	args = args[1:] // chop off the first word which should be "help"
	var helpKey string
	if len(args) == 0 {
		helpKey = "help"
	} else {
		helpKey = strings.TrimPrefix(args[0], `\`)
	}
	switch helpKey {
	case "add":
		fmt.Fprintln(c.out, `
		Syntax:

			>> \add <first name> <last name> <age>

		The master assigns the id and prints it. Not permitted on a slave.`)
	case "remove", "search":
		fmt.Fprintln(c.out, `
		Syntax (same for remove/search):

			>> \search <id>
			>> \remove <id>

	search: prints the record stored under the id
	remove: deletes that record (master only)`)
	case "show":
		fmt.Fprintln(c.out, `
		Syntax:

			>> \show [--name <glob>] [--export <file>]

		- Example: records whose full name starts with "Al", written to a CSV file:

			>> \show --name Al* --export /tmp/al.csv`)
	case "load":
		fmt.Fprintln(c.out, `
		The load command adds every row of a CSV file as a single batch.

		Syntax:

			>> \load <csv input file>

		The first row must name the columns: first_name,last_name,age`)
	case "save":
		fmt.Fprintln(c.out, `
		Writes the snapshot to the configured data_path. Not permitted on a slave.`)
	case "help":
		fmt.Fprintln(c.out, `
		Usage: \help command_name

		Available commands: add, remove, search, show, load, save`)
	default:
		fmt.Fprintf(c.out, "No help available for %s\n", helpKey)
	}
}
