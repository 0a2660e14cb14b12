package exec

import "strings"

// ShellQuote quotes `s` so that a POSIX shell treats it as a single word.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.Replace(s, "'", `'\''`, -1) + "'"
}

// ShellPath quotes `path` for a shell while still letting it expand a
// leading ~.
func ShellPath(path string) string {
	switch {
	case path == "~":
		return path
	case strings.HasPrefix(path, "~/"):
		return "~/" + ShellQuote(strings.TrimPrefix(path, "~/"))
	default:
		return ShellQuote(path)
	}
}

// ShellCommand joins `args` into a command line, quoting each argument.
func ShellCommand(args ...string) string {
	var quoted []string
	for _, arg := range args {
		quoted = append(quoted, ShellQuote(arg))
	}
	return strings.Join(quoted, " ")
}
