package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"chase-duel-service/internal/app"
)

type WSHandler struct {
	service  *app.DuelService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.DuelService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Index *int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets: it pushes every snapshot of
// one duel and accepts answer, continue and exit messages for it.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	duelID := chi.URLParam(r, "id")
	updates, cancel, err := h.service.Subscribe(r.Context(), duelID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("duel_id", duelID).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	logger := log.With().Str("duel_id", duelID).Logger()
	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only the writer goroutine writes to conn.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if msg.Type == "" {
				// End of the duel: say goodbye and stop the read loop.
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "duel over"),
					time.Now().Add(time.Second))
				_ = conn.SetReadDeadline(time.Now().Add(time.Second))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug().Err(err).Msg("ws write error")
				return
			}
		}
	}()

	push := func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-writerDone:
			return false
		case <-closeSignals:
			return false
		}
	}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					push(outboundMessage[any]{})
					return
				}
				if !push(outboundMessage[any]{Type: "state", Payload: snap}) {
					return
				}
				if snap.Ended && snap.Outcome != nil {
					push(outboundMessage[any]{Type: "complete", Payload: *snap.Outcome})
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		var err error
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if jerr := json.Unmarshal(inbound.Payload, &payload); jerr != nil || payload.Index == nil {
				push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
				continue
			}
			err = h.service.SubmitAnswer(r.Context(), duelID, *payload.Index)
		case "continue":
			err = h.service.Continue(r.Context(), duelID)
		case "exit":
			err = h.service.Exit(r.Context(), duelID)
		default:
			push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
			continue
		}
		if err != nil {
			push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
