//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package watermark

import "runtime"

func uname() (release, machine string) {
	return "", runtime.GOARCH
}
