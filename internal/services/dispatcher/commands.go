package dispatcher

import (
	"fmt"
	"strings"

	"github.com/fgeck/arkki/internal/models"
)

// Operation identifies what a verb does.
type Operation int

// Operations reachable from the verb table.
const (
	OpBackup Operation = iota
	OpInit
	OpSetOption
	OpAddPattern
	OpList
	OpPrint
	OpHelp
	OpVersion
	OpQuit
)

// Command is one entry of the verb table.
type Command struct {
	Name string
	// MinAbbrev is the length of the shortest accepted prefix of Name.
	MinAbbrev int
	Aliases   []string
	Op        Operation
	// Option is the option written by OpSetOption.
	Option string
	// MaxArgs is the argument limit; -1 means unlimited.
	MaxArgs int
	Usage   string
	Short   string

	// InteractiveOnly commands are not exposed as CLI subcommands.
	InteractiveOnly bool
}

// Commands is the verb table, in help order.
var Commands = []Command{
	{Name: "backup", MinAbbrev: 1, Op: OpBackup, MaxArgs: 1, Usage: "backup [dir|file]", Short: "Write an archive of the root directory"},
	{Name: "init", MinAbbrev: 1, Op: OpInit, MaxArgs: 1, Usage: "init [name]", Short: "Create a configuration with default values"},
	{Name: "setroot", MinAbbrev: 1, Op: OpSetOption, Option: models.OptionRoot, MaxArgs: 1, Usage: "setroot [dir]", Short: "Set the directory to back up"},
	{Name: "encrypt", MinAbbrev: 2, Op: OpSetOption, Option: models.OptionEncrypt, MaxArgs: 1, Usage: "encrypt [identifier]", Short: "Set the encryption recipient, or disable encryption"},
	{Name: "compress", MinAbbrev: 1, Op: OpSetOption, Option: models.OptionCompress, MaxArgs: 1, Usage: "compress [bzip2|gzip|none]", Short: "Set the compression method"},
	{Name: "output", MinAbbrev: 1, Op: OpSetOption, Option: models.OptionOutput, MaxArgs: 1, Usage: "output [dir]", Short: "Set the default output directory"},
	{Name: "exclude", MinAbbrev: 2, Op: OpAddPattern, MaxArgs: -1, Usage: "exclude [-d] [pattern...]", Short: "Add, remove or show exclude patterns"},
	{Name: "list", MinAbbrev: 1, Op: OpList, MaxArgs: 0, Usage: "list", Short: "Show the files a backup would include"},
	{Name: "print", MinAbbrev: 1, Op: OpPrint, MaxArgs: 1, Usage: "print [name]", Short: "Print a configuration"},
	{Name: "help", MinAbbrev: 1, Aliases: []string{"?"}, Op: OpHelp, MaxArgs: 1, Usage: "help", Short: "Show available commands", InteractiveOnly: true},
	{Name: "version", MinAbbrev: 1, Op: OpVersion, MaxArgs: 0, Usage: "version", Short: "Show the program version", InteractiveOnly: true},
	{Name: "quit", MinAbbrev: 1, Aliases: []string{"exit"}, Op: OpQuit, MaxArgs: 0, Usage: "quit", Short: "Leave interactive mode", InteractiveOnly: true},
}

// Abbreviations returns every accepted spelling of c other than its name:
// the prefixes from MinAbbrev up to one short of the full name, then Aliases.
func (c Command) Abbreviations() []string {
	var out []string
	for n := c.MinAbbrev; n > 0 && n < len(c.Name); n++ {
		out = append(out, c.Name[:n])
	}
	return append(out, c.Aliases...)
}

// Matches reports whether word names c.
func (c Command) Matches(word string) bool {
	if word == c.Name {
		return true
	}
	for _, a := range c.Abbreviations() {
		if word == a {
			return true
		}
	}
	return false
}

// Resolve looks word up in the verb table.
func Resolve(word string) (Command, error) {
	word = strings.ToLower(word)
	for _, c := range Commands {
		if c.Matches(word) {
			return c, nil
		}
	}
	return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, word)
}
