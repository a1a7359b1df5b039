// Package shell models external commands and runs them as child processes.
package shell

import (
	"regexp"
	"strings"
)

// Command is an external process invocation.
//
// Name and Args are passed to the operating system as an argv vector; no
// shell interprets them. Display, when set, replaces the rendered argv in
// narration (used for commands that are themselves shell lines).
type Command struct {
	Name    string
	Args    []string
	Display string
}

// Line wraps a shell line so it runs through "sh -c".
func Line(line string) Command {
	return Command{Name: "sh", Args: []string{"-c", line}, Display: line}
}

// String renders the command as a copy-pasteable shell line.
func (c Command) String() string {
	if c.Display != "" {
		return c.Display
	}
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, QuoteIfNeeded(c.Name))
	for _, a := range c.Args {
		parts = append(parts, QuoteIfNeeded(a))
	}
	return strings.Join(parts, " ")
}

var shellSpecial = regexp.MustCompile("([\"\\\\$`])")

// Quote wraps v in double quotes, escaping the characters that remain
// special inside double quotes: ", \, $ and `.
func Quote(v string) string {
	return `"` + shellSpecial.ReplaceAllString(v, `\$1`) + `"`
}

var shellSafe = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// QuoteIfNeeded returns v unchanged when it contains only characters that a
// POSIX shell treats literally, and Quote(v) otherwise.
func QuoteIfNeeded(v string) string {
	if shellSafe.MatchString(v) {
		return v
	}
	return Quote(v)
}
