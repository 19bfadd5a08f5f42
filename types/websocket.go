package types

const (
	TypeWebsocketPing   = "ping"
	TypeWebsocketPong   = "pong"
	TypeWebsocketIngest = "ingest"
	TypeWebsocketEvent  = "event"
	TypeWebsocketError  = "error"
)

type WebsocketRequest struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type WebSocketResponse struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type WebSocketErrorResponse struct {
	Message string `json:"message"`
}
