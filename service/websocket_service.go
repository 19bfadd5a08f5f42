package service

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/edumate-ai/tutor-be/types"
	"github.com/edumate-ai/tutor-be/utils"
)

// WebSocketService streams ingestion events over a websocket connection.
// The client sends one "ingest" envelope and receives "event" envelopes
// until the pipeline finishes. Closing the connection cancels the run.
type WebSocketService struct {
	ingest   *IngestService
	upgrader websocket.Upgrader
}

func NewWebSocketService(ingest *IngestService) *WebSocketService {
	return &WebSocketService{
		ingest: ingest,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins (adjust for production)
			},
		},
	}
}

func (s *WebSocketService) HandleIngest(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}
	conn.SetReadLimit(4 * 1024 * 1024)
	defer conn.Close()

	// The auth middleware already verified the token; this only tags the
	// session log with the requesting admin.
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		if id, err := utils.GetIdWithoutCheck(token); err == nil && id != "" {
			log.Printf("ingest session opened by admin %s", id)
		}
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var writeMu sync.Mutex
	writeJSON := func(res types.WebSocketResponse) {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
		if err := conn.WriteJSON(res); err != nil {
			log.Println("Write error:", err)
		}
	}
	writeError := func(msg string) {
		writeJSON(types.WebSocketResponse{
			Type:    types.TypeWebsocketError,
			Payload: types.WebSocketErrorResponse{Message: msg},
		})
	}

	for {
		_, p, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}
		var envelope types.WebsocketRequest
		if err := json.Unmarshal(p, &envelope); err != nil {
			log.Println("Unmarshal error:", err)
			writeError("invalid message")
			continue
		}
		switch envelope.Type {
		case types.TypeWebsocketPing:
			writeJSON(types.WebSocketResponse{Type: types.TypeWebsocketPong})
		case types.TypeWebsocketIngest:
			payloadBytes, err := json.Marshal(envelope.Payload)
			if err != nil {
				writeError("invalid message")
				continue
			}
			var req types.IngestRequest
			if err := json.Unmarshal(payloadBytes, &req); err != nil {
				log.Println("Unmarshal error:", err)
				writeError("invalid ingest request")
				continue
			}

			// Watch for the client going away while the pipeline runs,
			// so cancellation propagates to the run context.
			runCtx, runCancel := context.WithCancel(ctx)
			done := make(chan struct{})
			go func() {
				defer runCancel()
				for {
					select {
					case <-done:
						return
					default:
					}
					if _, _, err := conn.NextReader(); err != nil {
						return
					}
				}
			}()

			err = s.ingest.Ingest(runCtx, req, func(event types.IngestEvent) {
				writeJSON(types.WebSocketResponse{
					Type:    types.TypeWebsocketEvent,
					Payload: event,
				})
			})
			close(done)
			runCancel()
			if err != nil {
				log.Printf("ingest over websocket failed: %v", err)
			}
			return
		default:
			log.Println("Invalid message type")
		}
	}
}

func (s *WebSocketService) Health() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}
