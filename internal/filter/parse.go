package filter

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadFile appends rules read from path. One rule per line:
// "+ PATTERN" includes, "- PATTERN" or a bare PATTERN excludes, blank
// lines and lines starting with "#" are ignored.
func (c *Chain) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open filter file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		include := false
		if rest, ok := strings.CutPrefix(line, "+ "); ok {
			include, line = true, strings.TrimSpace(rest)
		} else if rest, ok := strings.CutPrefix(line, "- "); ok {
			line = strings.TrimSpace(rest)
		}

		if err := c.add(line, include); err != nil {
			return fmt.Errorf("filter file %s line %d: %w", path, lineNum, err)
		}
	}
	return scanner.Err()
}
