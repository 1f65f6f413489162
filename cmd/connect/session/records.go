package session

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alpacahq/recordstore/models"
)

// add appends one record: \add <first name> <last name> <age>
func (c *Client) add(line string) {
	args := strings.Fields(line)[1:]
	const wantArgs = 3
	if len(args) != wantArgs {
		fmt.Fprintln(c.out, `Syntax: \add <first name> <last name> <age>`)
		return
	}
	age, err := strconv.Atoi(args[2])
	if err != nil || age < 0 {
		fmt.Fprintf(c.out, "Invalid age %q\n", args[2])
		return
	}

	r := &models.Record{FirstName: args[0], LastName: args[1], Age: age}
	if err = c.svc.Add(r); err != nil {
		fmt.Fprintln(c.out, err)
		return
	}
	fmt.Fprintf(c.out, "Added record id=%d\n", r.ID)
}

// remove deletes the record currently stored under the id: \remove <id>
func (c *Client) remove(line string) {
	id, ok := c.parseID(line, `\remove`)
	if !ok {
		return
	}
	r, found := c.svc.SearchByID(id)
	if !found {
		fmt.Fprintf(c.out, "No record with id=%d\n", id)
		return
	}
	if err := c.svc.Remove(&r); err != nil {
		fmt.Fprintln(c.out, err)
		return
	}
	fmt.Fprintf(c.out, "Removed record id=%d\n", id)
}

// search prints the record with the id: \search <id>
func (c *Client) search(line string) {
	id, ok := c.parseID(line, `\search`)
	if !ok {
		return
	}
	r, found := c.svc.SearchByID(id)
	if !found {
		fmt.Fprintf(c.out, "No record with id=%d\n", id)
		return
	}
	c.printRecords([]models.Record{r})
}

func (c *Client) save() {
	if err := c.svc.Save(); err != nil {
		fmt.Fprintln(c.out, err)
		return
	}
	fmt.Fprintln(c.out, "Saved!")
}

func (c *Client) parseID(line, command string) (int, bool) {
	args := strings.Fields(line)[1:]
	if len(args) != 1 {
		fmt.Fprintf(c.out, "Syntax: %s <id>\n", command)
		return 0, false
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Invalid id %q\n", args[0])
		return 0, false
	}
	return id, true
}
