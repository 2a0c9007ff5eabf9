package remotelab

import "strings"

// Quote wraps s in single quotes for safe interpolation into a remote POSIX
// shell command. Single quotes inside s are escaped.
//
// Every path, session name and package name this library interpolates into
// a command string goes through Quote.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// QuoteAll quotes each argument and joins them with spaces.
func QuoteAll(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = Quote(a)
	}

	return strings.Join(quoted, " ")
}
