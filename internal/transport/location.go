package transport

import (
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultSSHPort is used when a location names no port.
const DefaultSSHPort = 22

// Location represents a parsed source or destination argument.
type Location struct {
	Host string
	User string
	Path string
	Port int // 0 = not specified
}

// IsRemote returns true if the location refers to a remote host.
func (l Location) IsRemote() bool {
	return l.Host != ""
}

// String returns a human-readable representation.
func (l Location) String() string {
	if !l.IsRemote() {
		return l.Path
	}
	host := l.Host
	if l.Port != 0 {
		host = net.JoinHostPort(l.Host, strconv.Itoa(l.Port))
		if l.User != "" {
			host = l.User + "@" + host
		}
		return fmt.Sprintf("ssh://%s/%s", host, strings.TrimPrefix(l.Path, "/"))
	}
	if l.User != "" {
		return fmt.Sprintf("%s@%s:%s", l.User, host, l.Path)
	}
	return fmt.Sprintf("%s:%s", host, l.Path)
}

// ParseLocation parses a CLI argument into a Location.
//
// Supported formats:
//   - /absolute/path                  → local
//   - relative/path                   → local
//   - C:\path                         → local (drive letter)
//   - host:path                       → remote (current user)
//   - user@host:path                  → remote
//   - ssh://[user@]host[:port]/path   → remote with explicit port
//
// A path containing ":" is only treated as remote if the part before the
// colon contains no path separators (so "/foo:bar" and "./host:path" are
// local). An empty remote path means the login directory.
func ParseLocation(arg string) Location {
	if strings.HasPrefix(arg, "ssh://") {
		return parseSSHURL(arg)
	}

	if filepath.IsAbs(arg) || strings.HasPrefix(arg, "./") || strings.HasPrefix(arg, "../") {
		return Location{Path: arg}
	}

	colonIdx := strings.IndexByte(arg, ':')
	if colonIdx < 0 {
		return Location{Path: arg}
	}

	hostPart := arg[:colonIdx]
	pathPart := arg[colonIdx+1:]

	if hostPart == "" || strings.ContainsRune(hostPart, filepath.Separator) || strings.ContainsRune(hostPart, '/') {
		return Location{Path: arg}
	}
	if len(hostPart) == 1 && isDriveLetter(hostPart[0]) {
		return Location{Path: arg}
	}

	var user, host string
	if atIdx := strings.LastIndexByte(hostPart, '@'); atIdx >= 0 {
		user = hostPart[:atIdx]
		host = hostPart[atIdx+1:]
	} else {
		host = hostPart
	}
	if host == "" {
		return Location{Path: arg}
	}
	if pathPart == "" {
		pathPart = "."
	}

	return Location{Host: host, User: user, Path: pathPart}
}

func parseSSHURL(raw string) Location {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return Location{Path: raw}
	}

	port := 0
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return Location{Path: raw}
		}
	}

	// ssh://host/~/dir and ssh://host/ name the login directory.
	p := strings.TrimPrefix(u.Path, "/")
	switch {
	case p == "" || p == "~":
		p = "."
	case strings.HasPrefix(p, "~/"):
		p = strings.TrimPrefix(p, "~/")
	default:
		p = "/" + p
	}

	var user string
	if u.User != nil {
		user = u.User.Username()
	}
	return Location{Host: u.Hostname(), User: user, Port: port, Path: p}
}

func isDriveLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
