// Package state tracks the MCP session lifecycle.
// file: internal/mcp/state/states.go
package state

// State is a lifecycle state of one MCP session.
type State string

// Session lifecycle states.
const (
	StateUninitialized State = "uninitialized" // Connected, no initialize yet.
	StateInitializing  State = "initializing"  // Initialize answered, awaiting notifications/initialized.
	StateInitialized   State = "initialized"   // Handshake complete.
	StateShutdown      State = "shutdown"      // Exit received or transport failed.
)

// IsTerminal reports whether no further messages will be accepted in s.
func IsTerminal(s State) bool {
	return s == StateShutdown
}
