// Package game drives an anchor through a streamed level from terminal input.
package game

// State represents the current input mode.
type State int

const (
	// StateLoading waits for the anchor's chunk before placing the anchor.
	StateLoading State = iota
	// StateExplore moves the anchor with the arrow keys.
	StateExplore
	// StateDig turns the next direction key into a dig.
	StateDig
	// StateBuild turns the next direction key into a wall.
	StateBuild
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateExplore:
		return "explore"
	case StateDig:
		return "dig"
	case StateBuild:
		return "build"
	default:
		return "unknown"
	}
}
