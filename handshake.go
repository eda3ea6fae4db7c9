package eio

// HandshakePacket is sent as the first frame after transport establishment.
type HandshakePacket struct {
	Sid          Sid      `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int64    `json:"pingInterval"`
	PingTimeout  int64    `json:"pingTimeout"`
}

// ServerOption configures heartbeat timing. Defaults match the node
// engine.io implementation.
type ServerOption struct {
	PingInterval int64 // milliseconds
	PingTimeout  int64 // milliseconds
}

// DefaultServerOption returns the node-compatible heartbeat defaults.
func DefaultServerOption() ServerOption {
	return ServerOption{
		PingInterval: 25000,
		PingTimeout:  20000,
	}
}
