// Package filter decides which entries of a source tree take part in a copy.
package filter

import (
	"fmt"
	"strings"
)

// Rule is one include or exclude pattern.
type Rule struct {
	pattern *pattern
	Include bool
}

func (r Rule) String() string {
	if r.Include {
		return "+ " + r.pattern.String()
	}
	return "- " + r.pattern.String()
}

// Chain is an ordered rule list plus optional file size bounds. The first
// matching rule decides; an entry no rule matches is included.
type Chain struct {
	rules   []Rule
	minSize int64
	maxSize int64
}

// NewChain creates an empty filter chain.
func NewChain() *Chain {
	return &Chain{}
}

// AddExclude appends an exclude rule.
func (c *Chain) AddExclude(pat string) error { return c.add(pat, false) }

// AddInclude appends an include rule.
func (c *Chain) AddInclude(pat string) error { return c.add(pat, true) }

// Add appends a rule written as "+ pattern" or "- pattern". A bare pattern
// is an exclude.
func (c *Chain) Add(line string) error {
	switch {
	case strings.HasPrefix(line, "+ "):
		return c.AddInclude(strings.TrimSpace(line[2:]))
	case strings.HasPrefix(line, "- "):
		return c.AddExclude(strings.TrimSpace(line[2:]))
	default:
		return c.AddExclude(line)
	}
}

func (c *Chain) add(pat string, include bool) error {
	p, err := compilePattern(pat)
	if err != nil {
		return err
	}
	c.rules = append(c.rules, Rule{pattern: p, Include: include})
	return nil
}

// Rules returns the rules in evaluation order.
func (c *Chain) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// SetMinSize excludes regular files smaller than n bytes. Zero disables.
func (c *Chain) SetMinSize(n int64) { c.minSize = n }

// SetMaxSize excludes regular files larger than n bytes. Zero disables.
func (c *Chain) SetMaxSize(n int64) { c.maxSize = n }

// Empty reports whether the chain has no rules and no size bounds.
func (c *Chain) Empty() bool {
	return c == nil || (len(c.rules) == 0 && c.minSize == 0 && c.maxSize == 0)
}

// Match reports whether the entry at relPath is included. A nil chain
// includes everything. Size is ignored for directories.
func (c *Chain) Match(relPath string, isDir bool, size int64) bool {
	if c == nil {
		return true
	}
	if !isDir {
		if c.minSize > 0 && size < c.minSize {
			return false
		}
		if c.maxSize > 0 && size > c.maxSize {
			return false
		}
	}
	for _, r := range c.rules {
		if r.pattern.match(relPath, isDir) {
			return r.Include
		}
	}
	return true
}

func (c *Chain) String() string {
	parts := make([]string, 0, len(c.rules)+2)
	for _, r := range c.rules {
		parts = append(parts, r.String())
	}
	if c.minSize > 0 {
		parts = append(parts, fmt.Sprintf("min-size %d", c.minSize))
	}
	if c.maxSize > 0 {
		parts = append(parts, fmt.Sprintf("max-size %d", c.maxSize))
	}
	return strings.Join(parts, "; ")
}
