// Package input resolves post bodies given as - (stdin) or @file arguments.
package input

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ExpandArg resolves a single post body argument. "-" reads all of stdin,
// "@path" reads the named file, and anything else passes through unchanged.
// Trailing whitespace is trimmed from expanded bodies.
func ExpandArg(arg string) (string, error) {
	switch {
	case arg == "-":
		body, err := readAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return body, nil
	case strings.HasPrefix(arg, "@"):
		path := strings.TrimPrefix(arg, "@")
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		defer f.Close()
		body, err := readAll(f)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return body, nil
	default:
		return arg, nil
	}
}

func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), " \t\r\n"), nil
}
