//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package watermark

import "golang.org/x/sys/unix"

func uname() (release, machine string) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return "", ""
	}
	return unix.ByteSliceToString(u.Release[:]), unix.ByteSliceToString(u.Machine[:])
}
