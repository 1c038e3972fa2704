package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"quizsync/internal/app"
	"quizsync/internal/domain"
	"github.com/gorilla/websocket"
)

// DefaultRefresh is the polling cadence: how often each connection re-reads
// the shared state and pushes a snapshot.
const DefaultRefresh = 2 * time.Second

// WSHandler is the host/player adapter over QuizController. Each connection
// is a cooperative poller: it re-reads the store on a fixed cadence and
// renders from the freshly loaded value; it never writes state fields
// directly, only via the controller operations.
type WSHandler struct {
	controller *app.QuizController
	refresh    time.Duration
	upgrader   websocket.Upgrader
}

func NewWSHandler(controller *app.QuizController, refresh time.Duration) *WSHandler {
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	return &WSHandler{
		controller: controller,
		refresh:    refresh,
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
	QuestionIndex int    `json:"questionIndex"`
	Option        string `json:"option"`
}

type advancePayload struct {
	FromIndex int `json:"fromIndex"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// questionView deliberately omits the correct answer.
type questionView struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type snapshotPayload struct {
	Phase            domain.Phase       `json:"phase"`
	QuestionIndex    int                `json:"questionIndex"`
	QuestionCount    int                `json:"questionCount"`
	Question         *questionView      `json:"question,omitempty"`
	RemainingSeconds int                `json:"remainingSeconds"`
	Leaderboard      domain.Leaderboard `json:"leaderboard"`
}

func snapshotOf(state domain.QuizState, clock app.SessionClock, now time.Time) snapshotPayload {
	snap := snapshotPayload{
		Phase:         state.Phase,
		QuestionIndex: state.QuestionIndex,
		QuestionCount: len(state.Questions),
		Leaderboard:   app.LeaderboardFrom(state, now),
	}
	if q, ok := state.CurrentQuestion(); ok {
		snap.Question = &questionView{Text: q.Text, Options: append([]string(nil), q.Options...)}
		snap.RemainingSeconds = int(clock.Remaining(state, now) / time.Second)
	}
	return snap
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz
// session. Players join on connect; hosts additionally drive start, advance,
// and reset, and trigger the automatic advance when a question times out.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	role := r.URL.Query().Get("role")
	if role == "" {
		role = "player"
	}
	if role != "player" && role != "host" {
		http.Error(w, "role must be player or host", http.StatusBadRequest)
		return
	}
	if role == "player" && name == "" {
		http.Error(w, "missing name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	if role == "player" {
		if _, err := h.controller.Join(ctx, name); err != nil {
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
			return
		}
	}

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	pollerDone := make(chan struct{})

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
		defer close(pollerDone)
		ticker := time.NewTicker(h.refresh)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if role == "host" {
					if _, advanced, err := h.controller.AdvanceIfDue(ctx, time.Now()); err == nil && advanced {
						log.Printf("question timer expired, advanced")
					}
				}
				snap, err := h.snapshot(ctx)
				if err != nil {
					continue
				}
				select {
				case send <- outboundMessage[any]{Type: "snapshot", Payload: snap}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	if snap, err := h.snapshot(ctx); err == nil {
		send <- outboundMessage[any]{Type: "snapshot", Payload: snap}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			_, result, err := h.controller.SubmitAnswer(ctx, domain.AnswerSubmission{
				PlayerName:    name,
				QuestionIndex: payload.QuestionIndex,
				ChosenOption:  payload.Option,
				SubmittedAt:   time.Now().UTC(),
			})
			if errors.Is(err, domain.ErrStaleSubmission) {
				// The question moved on under the player; show them the fresh
				// state instead of an error.
				h.pushSnapshot(ctx, send, closeSignals)
				continue
			}
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: result}
			h.pushSnapshot(ctx, send, closeSignals)
		case "start":
			if !h.requireHost(role, send) {
				continue
			}
			if _, err := h.controller.Start(ctx); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			h.pushSnapshot(ctx, send, closeSignals)
		case "advance":
			if !h.requireHost(role, send) {
				continue
			}
			var payload advancePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid advance payload"}}
				continue
			}
			if _, err := h.controller.Advance(ctx, payload.FromIndex); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			h.pushSnapshot(ctx, send, closeSignals)
		case "reset":
			if !h.requireHost(role, send) {
				continue
			}
			if _, err := h.controller.Reset(ctx); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			h.pushSnapshot(ctx, send, closeSignals)
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-pollerDone
	close(send)
	<-writerDone
}

func (h *WSHandler) snapshot(ctx context.Context) (snapshotPayload, error) {
	state, err := h.controller.State(ctx)
	if err != nil {
		return snapshotPayload{}, err
	}
	return snapshotOf(state, h.controller.Clock(), time.Now()), nil
}

func (h *WSHandler) pushSnapshot(ctx context.Context, send chan<- outboundMessage[any], closeSignals <-chan struct{}) {
	snap, err := h.snapshot(ctx)
	if err != nil {
		return
	}
	select {
	case send <- outboundMessage[any]{Type: "snapshot", Payload: snap}:
	case <-closeSignals:
	}
}

func (h *WSHandler) requireHost(role string, send chan<- outboundMessage[any]) bool {
	if role == "host" {
		return true
	}
	send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "host role required"}}
	return false
}
