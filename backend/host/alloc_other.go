//go:build !(linux || darwin || freebsd)

package host

func mapAlloc(n int) ([]byte, bool) { return nil, false }

func mapFree(data []byte) {}
