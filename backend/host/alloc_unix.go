//go:build linux || darwin || freebsd

package host

import "golang.org/x/sys/unix"

func mapAlloc(n int) ([]byte, bool) {
	data, err := unix.Mmap(-1, 0, n,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, false
	}
	return data, true
}

func mapFree(data []byte) {
	_ = unix.Munmap(data)
}
