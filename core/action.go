package core

import "fmt"

// Action is the kind of memory event reported to user callbacks.
type Action uint8

const (
	ActionAlloc Action = iota
	ActionFree
	ActionMove
)

func (a Action) String() string {
	names := [...]string{"alloc", "free", "move"}
	if int(a) < len(names) {
		return names[a]
	}
	return fmt.Sprintf("action(%d)", a)
}
