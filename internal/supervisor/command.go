package supervisor

import (
	"fmt"
	"slices"
	"strings"
)

// Command describes how to launch the engine.
type Command struct {
	Path string
	Args []string
	// Env entries (KEY=VALUE) are appended to the host environment.
	Env []string
	Dir string
}

// String renders the command line for logs.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Path
	}
	return c.Path + " " + strings.Join(c.Args, " ")
}

// Equal reports whether two commands would launch the same process.
func (c Command) Equal(other Command) bool {
	return c.Path == other.Path &&
		c.Dir == other.Dir &&
		slices.Equal(c.Args, other.Args) &&
		slices.Equal(c.Env, other.Env)
}

// ParseArgs splits a command line into arguments.
// Handles quoted strings and basic escaping.
func ParseArgs(command string) ([]string, error) {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	command = strings.TrimSpace(command)
	runes := []rune(command)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' || r == '\'':
			switch {
			case !inQuote:
				inQuote = true
				quoteChar = r
			case r == quoteChar:
				inQuote = false
				quoteChar = 0
			default:
				current.WriteRune(r)
			}
		case (r == ' ' || r == '\t') && !inQuote:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		case r == '\\' && i+1 < len(runes):
			i++
			current.WriteRune(runes[i])
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		args = append(args, current.String())
	}

	if inQuote {
		return nil, fmt.Errorf("unclosed quote in command")
	}

	return args, nil
}
