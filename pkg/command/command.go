// Package command is the external command-parsing collaborator referenced
// in spec §6: turning an argv-style string slice or a single command-line
// string into a structured Command, the shape request runners dispatch on
// (spec §4.5 "run_command"). Parsing itself is out of scope per spec §1;
// this package supplies the minimal real implementation so the module is
// self-contained.
package command

import (
	"strings"

	"github.com/odin-media/playercore/pkg/event"
)

// Command is a parsed command: a name and its positional arguments.
type Command struct {
	Name string
	Args []string
}

// FromArgv builds a Command directly from an argv-style slice, mirroring
// the engine's native calling convention (spec §4.5 "run_command(argv)").
func FromArgv(argv []string) (Command, event.Status) {
	if len(argv) == 0 {
		return Command{}, event.StatusInvalidParameter
	}
	return Command{Name: argv[0], Args: argv[1:]}, event.StatusOK
}

// FromLine splits a single command-line string into a Command, the way a
// script or config-file "input-cmd" line arrives. Arguments are
// whitespace-separated; there is no quoting support, matching the
// engine's simplest accepted input form.
func FromLine(line string) (Command, event.Status) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, event.StatusInvalidParameter
	}
	return Command{Name: fields[0], Args: fields[1:]}, event.StatusOK
}

// String reconstructs a single-line representation of c, for logging.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}
