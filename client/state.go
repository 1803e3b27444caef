package client

// State is the lifecycle phase of a Conn.
//
//	Unconnected -> Connecting -> LoggingIn -> Ready -> Closed
//
// Any phase can move straight to Closed. Closed is terminal.
type State int

const (
	Unconnected State = iota
	Connecting
	LoggingIn
	Ready
	Closed
)

func (s State) String() string {
	switch s {
	case Unconnected:
		return "unconnected"
	case Connecting:
		return "connecting"
	case LoggingIn:
		return "logging-in"
	case Ready:
		return "ready"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
