package filter

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/go-git/go-billy/v5"
)

// LoadFile appends the rules in the named file. Each non-blank line is a
// rule as accepted by Add; lines starting with # are comments.
func (c *Chain) LoadFile(fsys billy.Basic, name string) error {
	f, err := fsys.Open(name)
	if err != nil {
		return fmt.Errorf("open filter file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := c.Add(line); err != nil {
			return fmt.Errorf("filter file %s line %d: %w", name, lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read filter file %s: %w", name, err)
	}
	return nil
}
