package models

import "encoding/json"

// WSMessage is the envelope for every message on the tracking channel.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// WSErrorMessage is the payload of an error event.
type WSErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PeerEvent is the payload of peer_joined / peer_left events.
type PeerEvent struct {
	OrderID string `json:"order_id"`
	Role    Role   `json:"role"`
}
