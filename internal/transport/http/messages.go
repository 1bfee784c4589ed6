package http

import "encoding/json"

// inboundMessage is the envelope every controller message arrives in.
type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Controller → server payloads. The closed set of message types is handled
// exhaustively in the controller read loop; unknown types are logged and
// dropped, since no response is owed for a protocol violation.

type setTeamNamePayload struct {
	Name string `json:"name"`
}

type shootPayload struct {
	TargetXPercent float64 `json:"targetXPercent"`
	TargetYPercent float64 `json:"targetYPercent"`
	Power          float64 `json:"power"`
}

type crosshairPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type startAimingPayload struct {
	GyroEnabled bool `json:"gyroEnabled"`
}

type targetingPayload struct {
	OrbID string `json:"orbId"`
}
