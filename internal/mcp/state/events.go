// file: internal/mcp/state/events.go
package state

// Event triggers a lifecycle transition.
type Event string

// Lifecycle events.
const (
	EventInitializeRequest Event = "rcvd_initialize_request"
	EventClientInitialized Event = "rcvd_client_initialized_notif"
	EventExitNotification  Event = "rcvd_exit_notification"
	EventTransportError    Event = "transport_error"
)

// EventForMethod maps an MCP method to the lifecycle event it fires.
// Operational methods fire no event and return "".
func EventForMethod(method string) Event {
	switch method {
	case "initialize":
		return EventInitializeRequest
	case "notifications/initialized":
		return EventClientInitialized
	case "exit":
		return EventExitNotification
	default:
		return ""
	}
}
