//go:build unix

package transport

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isSharingViolation reports errnos that POSIX systems raise while another
// process briefly holds a file busy.
func isSharingViolation(err error) bool {
	return errors.Is(err, unix.EBUSY) ||
		errors.Is(err, unix.ETXTBSY) ||
		errors.Is(err, unix.EAGAIN)
}
