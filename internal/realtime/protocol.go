// Package realtime serves the admin channel over websockets. Clients send
// joinAdminRoom and then receive a newRegistration message for every
// registration created while they are connected.
package realtime

import (
	"encoding/json"
)

const (
	TypeJoinAdminRoom   = "joinAdminRoom"
	TypeJoinedAdminRoom = "joinedAdminRoom"
	TypeNewRegistration = "newRegistration"
	TypeError           = "error"
)

// Message is the envelope for every frame in both directions.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func encode(msgType string, data interface{}) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Message{Type: msgType, Data: raw})
}
