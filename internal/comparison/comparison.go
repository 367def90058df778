// Package comparison turns the CSV written by the administration tool's
// Compare command into text git can display.
package comparison

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Deleted is the change kind reported for objects missing from the newer
// repository.
const Deleted = "Deleted"

// Change is a single row of the comparison output: one repository object
// that differs between the two files.
type Change struct {
	Name     string
	Kind     string
	Type     string
	Location string
}

// Icon returns the diff line prefix for the change.
func (c Change) Icon() string {
	if c.Kind == Deleted {
		return "-"
	}
	return "+"
}

// String renders the change as a diff line.
func (c Change) String() string {
	return fmt.Sprintf("%s (%s) %s with name %s in %s layer.", c.Icon(), c.Kind, c.Type, c.Name, c.Location)
}

// Parse reads comparison rows from r. Every row needs at least four fields:
// name, change, type and location; extra fields are ignored. A leading
// byte-order mark selects UTF-16 decoding, otherwise UTF-8 is assumed.
func Parse(r io.Reader) ([]Change, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())

	reader := csv.NewReader(transform.NewReader(r, decoder))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var changes []Change
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// csv.ParseError already names the line.
			return nil, fmt.Errorf("comparison: %w", err)
		}

		if len(record) < 4 {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("comparison line %d: expected at least 4 fields, got %d", line, len(record))
		}

		changes = append(changes, Change{
			Name:     record[0],
			Kind:     record[1],
			Type:     record[2],
			Location: record[3],
		})
	}

	return changes, nil
}
