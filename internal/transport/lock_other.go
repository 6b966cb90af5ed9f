//go:build !unix && !windows

package transport

func isSharingViolation(error) bool { return false }
