package comparison

import (
	"bufio"
	"fmt"
	"io"
)

// DevNull is what git passes for the missing side of added or deleted files.
const DevNull = "/dev/null"

// WriteHeader writes the diff header for path.
func WriteHeader(w io.Writer, path string) error {
	_, err := fmt.Fprintf(w, "diff --git a/%s b/%s\n", path, path)
	return err
}

// WriteDiff writes changes as a single hunk below the diff header for path.
func WriteDiff(w io.Writer, path string, changes []Change) error {
	bw := bufio.NewWriter(w)

	if err := WriteHeader(bw, path); err != nil {
		return err
	}

	if _, err := bw.WriteString("@@ -1, 1 @@\n"); err != nil {
		return err
	}

	for _, change := range changes {
		if _, err := fmt.Fprintln(bw, change.String()); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// WriteFileMode writes the header of a file which only exists on one side.
// Such files cannot be compared, there is nothing to compare against.
func WriteFileMode(w io.Writer, path string, added bool, mode string) error {
	if err := WriteHeader(w, path); err != nil {
		return err
	}

	state := "deleted"
	if added {
		state = "new"
	}

	_, err := fmt.Fprintf(w, "%s file mode %s\n", state, mode)
	return err
}

// WriteUnmerged writes the notice git itself prints for unmerged paths.
func WriteUnmerged(w io.Writer, path string) error {
	_, err := fmt.Fprintf(w, "* Unmerged path %s\n", path)
	return err
}
