package admintool

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrInvalidArg represent errors caused by script arguments the
// administration tool would misinterpret.
var ErrInvalidArg = errors.New("invalid argument")

// IsInvalidArgErr relays if the error is due to an argument validation failure
func IsInvalidArgErr(err error) bool {
	return errors.Is(err, ErrInvalidArg)
}

// Command is a single line of an administration tool script.
type Command interface {
	// Verb is the name of the command as understood by the tool.
	Verb() string
	// Args returns the command's arguments in order.
	Args() []string
}

// Hide suppresses the tool's user interface.
type Hide struct{}

// Verb implements Command.
func (Hide) Verb() string { return "Hide" }

// Args implements Command.
func (Hide) Args() []string { return nil }

// OpenOffline opens a repository file without connecting to a server.
type OpenOffline struct {
	Path     string
	Password string
}

// Verb implements Command.
func (OpenOffline) Verb() string { return "OpenOffline" }

// Args implements Command.
func (c OpenOffline) Args() []string { return []string{c.Path, c.Password} }

// Merge performs a three-way merge into the open repository. The open
// repository is the current revision, Original the common ancestor and
// Modified the other revision.
type Merge struct {
	Original         string
	Modified         string
	Decisions        string
	OriginalPassword string
	ModifiedPassword string
	Output           string
}

// Verb implements Command.
func (Merge) Verb() string { return "Merge" }

// Args implements Command.
func (c Merge) Args() []string {
	return []string{c.Original, c.Modified, c.Decisions, c.OriginalPassword, c.ModifiedPassword, c.Output}
}

// Compare compares the open repository against Other and writes the
// differences as CSV to Output.
type Compare struct {
	Other    string
	Password string
	Output   string
}

// Verb implements Command.
func (Compare) Verb() string { return "Compare" }

// Args implements Command.
func (c Compare) Args() []string { return []string{c.Other, c.Password, c.Output} }

// SaveAs saves the open repository under a new path.
type SaveAs struct {
	Path string
}

// Verb implements Command.
func (SaveAs) Verb() string { return "SaveAs" }

// Args implements Command.
func (c SaveAs) Args() []string { return []string{c.Path} }

// Close closes the open repository.
type Close struct{}

// Verb implements Command.
func (Close) Verb() string { return "Close" }

// Args implements Command.
func (Close) Args() []string { return nil }

// Exit terminates the tool.
type Exit struct{}

// Verb implements Command.
func (Exit) Verb() string { return "Exit" }

// Args implements Command.
func (Exit) Args() []string { return nil }

// Script is an ordered list of commands executed by one tool invocation.
type Script []Command

// MergeScript returns the script performing a three-way merge of current,
// ancestor and other, saving the result to output.
func MergeScript(ancestor, current, other, decisions, output, password string) Script {
	return Script{
		OpenOffline{Path: current, Password: password},
		Merge{
			Original:         ancestor,
			Modified:         other,
			Decisions:        decisions,
			OriginalPassword: password,
			ModifiedPassword: password,
			Output:           output,
		},
		SaveAs{Path: output},
		Close{},
		Exit{},
	}
}

// CompareScript returns the script comparing the repository at path against
// other and writing the differences to output.
func CompareScript(path, other, output, password string) Script {
	return Script{
		Hide{},
		OpenOffline{Path: path, Password: password},
		Compare{Other: other, Password: password, Output: output},
		Close{},
		Exit{},
	}
}

// Name returns the verbs of the script joined by "+", used to label metrics
// and logs.
func (s Script) Name() string {
	verbs := make([]string, 0, len(s))
	for _, c := range s {
		verbs = append(verbs, c.Verb())
	}
	return strings.Join(verbs, "+")
}

// Render validates all arguments and returns the script text, one command
// per line separated by the platform line separator.
func (s Script) Render() ([]byte, error) {
	var b strings.Builder

	for i, c := range s {
		if i > 0 {
			b.WriteString(lineSeparator)
		}
		b.WriteString(c.Verb())

		for j, arg := range c.Args() {
			quoted, err := quoteArg(arg)
			if err != nil {
				return nil, fmt.Errorf("%s argument %d: %w", c.Verb(), j+1, err)
			}
			b.WriteByte(' ')
			b.WriteString(quoted)
		}
	}

	return []byte(b.String()), nil
}

// Redacted renders the script with all password arguments replaced, for
// logging. Invalid arguments are rendered as-is.
func (s Script) Redacted() string {
	lines := make([]string, 0, len(s))
	for _, c := range s {
		args := c.Args()
		for _, i := range passwordArgs(c) {
			args[i] = "********"
		}
		lines = append(lines, strings.TrimSpace(c.Verb()+" "+strings.Join(args, " ")))
	}
	return strings.Join(lines, lineSeparator)
}

func passwordArgs(c Command) []int {
	switch c.(type) {
	case OpenOffline:
		return []int{1}
	case Merge:
		return []int{3, 4}
	case Compare:
		return []int{1}
	}
	return nil
}

// quoteArg validates arg and wraps it in double quotes when it contains
// blanks. The tool splits lines on blanks and has no escape mechanism, so
// quotes and line breaks cannot be represented at all.
func quoteArg(arg string) (string, error) {
	if arg == "" {
		return "", fmt.Errorf("empty argument: %w", ErrInvalidArg)
	}

	if strings.ContainsAny(arg, "\x00\r\n\"") {
		return "", fmt.Errorf("argument %q contains forbidden characters: %w", arg, ErrInvalidArg)
	}

	if strings.ContainsAny(arg, " \t") {
		return `"` + arg + `"`, nil
	}

	return arg, nil
}

// DecisionsHeader is the content of a decisions file without any
// decisions. The tool rejects an empty file.
const DecisionsHeader = "Decision"

// WriteDecisions writes a decisions file which leaves every conflict to the
// tool's defaults.
func WriteDecisions(path string) error {
	return os.WriteFile(path, []byte(DecisionsHeader+lineSeparator), 0600)
}
