package comparison

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// Summary counts changes by kind.
type Summary struct {
	Added    int
	Deleted  int
	Modified int
}

// Total is the number of changes.
func (s Summary) Total() int {
	return s.Added + s.Deleted + s.Modified
}

func (s Summary) String() string {
	return fmt.Sprintf("%d changes (%d added, %d deleted, %d modified)", s.Total(), s.Added, s.Deleted, s.Modified)
}

// Summarize counts changes. Kinds other than Deleted and Modified count as
// additions, mirroring the icons used in the diff output.
func Summarize(changes []Change) Summary {
	var s Summary
	for _, change := range changes {
		switch change.Kind {
		case Deleted:
			s.Deleted++
		case "Modified":
			s.Modified++
		default:
			s.Added++
		}
	}
	return s
}

// WriteTable renders changes as a table followed by a summary line.
func WriteTable(w io.Writer, changes []Change) error {
	table := tablewriter.NewWriter(w)
	table.SetRowLine(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator(" ")
	table.SetCenterSeparator(" ")
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Name", "Change", "Type", "Layer"})

	for _, change := range changes {
		table.Append([]string{change.Name, change.Kind, change.Type, change.Location})
	}
	table.Render()

	_, err := fmt.Fprintln(w, Summarize(changes))
	return err
}
