package filter

import (
	"fmt"
	"path"
	"strings"
)

// pattern is an rsync-style glob split into path segments. A "**" segment
// matches zero or more whole segments; every other segment is matched
// against one path element with path.Match.
type pattern struct {
	original string
	segments []string
	anchored bool // leading / or an inner /
	dirOnly  bool // trailing /
}

func compilePattern(raw string) (*pattern, error) {
	p := &pattern{original: raw}
	s := raw
	if strings.HasSuffix(s, "/") {
		p.dirOnly = true
		s = strings.TrimSuffix(s, "/")
	}
	if strings.HasPrefix(s, "/") {
		p.anchored = true
		s = strings.TrimPrefix(s, "/")
	} else if strings.Contains(s, "/") {
		p.anchored = true
	}
	if s == "" {
		return nil, fmt.Errorf("empty pattern %q", raw)
	}

	for seg := range strings.SplitSeq(s, "/") {
		// rsync negates classes with '!', path.Match with '^'.
		seg = strings.ReplaceAll(seg, "[!", "[^")
		if seg != "**" {
			if _, err := path.Match(seg, ""); err != nil {
				return nil, fmt.Errorf("pattern %q: %w", raw, err)
			}
		}
		p.segments = append(p.segments, seg)
	}
	return p, nil
}

// match tests a slash-separated path relative to the copy root.
func (p *pattern) match(relPath string, isDir bool) bool {
	if p.dirOnly && !isDir {
		return false
	}
	elems := strings.Split(relPath, "/")
	if p.anchored {
		return matchSegments(p.segments, elems)
	}
	// Unanchored patterns match any trailing run of elements.
	for i := range elems {
		if matchSegments(p.segments, elems[i:]) {
			return true
		}
	}
	return false
}

func matchSegments(pat, elems []string) bool {
	if len(pat) == 0 {
		return len(elems) == 0
	}
	if pat[0] == "**" {
		for i := 0; i <= len(elems); i++ {
			if matchSegments(pat[1:], elems[i:]) {
				return true
			}
		}
		return false
	}
	if len(elems) == 0 {
		return false
	}
	ok, _ := path.Match(pat[0], elems[0])
	return ok && matchSegments(pat[1:], elems[1:])
}

func (p *pattern) String() string { return p.original }
