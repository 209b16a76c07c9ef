package http

import (
	"encoding/json"
	"log"
	"net/http"

	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/engine"
	"github.com/gorilla/websocket"
)

// WSHandler plays quiz sessions over a websocket: one connection per
// session, engine events out, player input in.
type WSHandler struct {
	loader   *engine.Loader
	upgrader websocket.Upgrader
}

func NewWSHandler(loader *engine.Loader) *WSHandler {
	return &WSHandler{
		loader: loader,
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
	OptionID string `json:"optionId"`
}

type powerUpPayload struct {
	Kind domain.PowerUpKind `json:"kind"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request, starts a session for the query parameters,
// and shuttles events and input until either side ends the session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	mode := domain.Mode(r.URL.Query().Get("mode"))
	ref := r.URL.Query().Get("ref")
	if !mode.Valid() || ref == "" {
		http.Error(w, "missing or invalid mode or ref", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sess, err := h.loader.Start(r.Context(), engine.StartRequest{
		Mode:        mode,
		ReferenceID: ref,
		Difficulty:  r.URL.Query().Get("difficulty"),
		Title:       r.URL.Query().Get("title"),
	})
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer func() {
		// Disconnects abandon the session; Quit is a no-op after completion.
		_ = sess.Quit()
	}()

	events, cancel := sess.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- toOutbound(ev):
				case <-closeSignals:
					return
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
		if done := h.dispatch(r, sess, send, inbound); done {
			break
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

// dispatch routes one inbound message. It reports true when the connection
// should wind down.
func (h *WSHandler) dispatch(r *http.Request, sess *engine.Session, send chan<- outboundMessage[any], inbound inboundMessage) bool {
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			sendError(send, "invalid answer payload")
			return false
		}
		if err := sess.SelectAnswer(payload.OptionID); err != nil {
			sendError(send, err.Error())
		}
	case "powerup":
		var payload powerUpPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || !payload.Kind.Valid() {
			sendError(send, "invalid powerup payload")
			return false
		}
		if err := sess.UsePowerUp(payload.Kind); err != nil {
			sendError(send, err.Error())
		}
	case "continue":
		if err := sess.ContinueAfterExplanation(); err != nil {
			sendError(send, err.Error())
		}
	case "report":
		if err := sess.ReportCurrentQuestion(r.Context()); err != nil {
			sendError(send, err.Error())
		}
	case "quit":
		_ = sess.Quit()
		return true
	default:
		sendError(send, "unsupported message type")
	}
	return false
}

func sendError(send chan<- outboundMessage[any], message string) {
	send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}

func toOutbound(ev engine.Event) outboundMessage[any] {
	switch ev.Type {
	case engine.EventQuestion:
		return outboundMessage[any]{Type: "question", Payload: ev.Question}
	case engine.EventOutcome:
		return outboundMessage[any]{Type: "outcome", Payload: ev.Outcome}
	case engine.EventCompleted:
		return outboundMessage[any]{Type: "completed", Payload: ev.Summary}
	default:
		return outboundMessage[any]{Type: "closed"}
	}
}
