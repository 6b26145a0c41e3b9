package core

import "fmt"

// Space identifies a physical memory space data can reside in.
type Space uint8

const (
	// NONE means "unspecified": callers use it to request the
	// configured default allocation space.
	NONE Space = iota
	CPU
	GPU

	// NumSpaces bounds per-record tables indexed by Space.
	NumSpaces
)

func (s Space) String() string {
	names := [...]string{"none", "cpu", "gpu"}
	if int(s) < len(names) {
		return names[s]
	}
	return fmt.Sprintf("space(%d)", s)
}

// ParseSpace maps a config name to a Space.
func ParseSpace(name string) (Space, error) {
	switch name {
	case "none", "":
		return NONE, nil
	case "cpu", "host":
		return CPU, nil
	case "gpu", "device":
		return GPU, nil
	}
	return NONE, fmt.Errorf("unknown execution space %q", name)
}
