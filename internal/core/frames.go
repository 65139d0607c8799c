package core

// Control message names, client to server.
const (
	ControlSubscribe   = "subscribe"
	ControlUnsubscribe = "unsubscribe"
	ControlPing        = "ping"
)

// ControlFrame is the flat wire shape of a client control message, e.g.
// {"type":"subscribe","room":"discussion:42"}.
type ControlFrame struct {
	Type string `json:"type"`
	Room string `json:"room,omitempty"`
}

func Subscribe(room string) ControlFrame {
	return ControlFrame{Type: ControlSubscribe, Room: room}
}

func Unsubscribe(room string) ControlFrame {
	return ControlFrame{Type: ControlUnsubscribe, Room: room}
}
