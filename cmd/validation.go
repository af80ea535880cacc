package cmd

import (
	"fmt"
	"strconv"
	"strings"
)

// parsePostID parses a post ID argument. A leading '#' is accepted so IDs
// can be pasted straight from timeline output.
func parsePostID(arg string) (int64, error) {
	s := strings.TrimPrefix(strings.TrimSpace(arg), "#")
	if s == "" {
		return 0, fmt.Errorf("post ID required")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid post ID %q", arg)
	}
	return id, nil
}
