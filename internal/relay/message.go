// Package relay implements the persistent message channel between the
// operator agent and the relay server: the wire envelope, the connection
// state machine with its heartbeat and snapshot senders, and a bounded
// diagnostics sink for recent wire activity.
package relay

// Message is the wire envelope used in both directions.
type Message struct {
	Name      string         `json:"name"`
	Data      map[string]any `json:"data"`
	CreatedAt int64          `json:"createdAt"`
}

// Message names understood on both ends of the channel.
const (
	MsgClientRegister = "client_register"
	MsgPing           = "ping"
	MsgPong           = "pong"
	MsgGamepadInput   = "gamepad_input"
)

// Roles announced in client_register.
const (
	RoleController = "controller"
	RoleVehicle    = "vehicle"
)

// numberField reads an integer out of decoded JSON data, where numbers
// arrive as float64. Epoch millisecond timestamps fit float64 exactly.
func numberField(data map[string]any, key string) (int64, bool) {
	switch v := data[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}
