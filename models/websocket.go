package models

// WSMessage is the envelope of every event pushed over the websocket.
type WSMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}
