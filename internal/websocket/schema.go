package websocket

import "github.com/stemsi/eduassess-backend/internal/attempt"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelect Action = "select"
	ActionSubmit Action = "submit"
	ActionPing   Action = "ping"
)

// RequestPayload carries every client action; fields unused by an action
// are omitted.
type RequestPayload struct {
	Action        Action `json:"action"`
	QuestionIndex *int   `json:"question_index,omitempty"`
	OptionIndex   *int   `json:"option_index,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventTick      Event = "tick"
	EventSelected  Event = "selected"
	EventFinalized Event = "finalized"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

// TickResponse is pushed once per second while the attempt is active.
type TickResponse struct {
	Event            Event `json:"event"`
	RemainingSeconds int   `json:"remaining_seconds"`
}

// SelectedResponse acknowledges an accepted answer.
type SelectedResponse struct {
	Event         Event `json:"event"`
	QuestionIndex int   `json:"question_index"`
	OptionIndex   int   `json:"option_index"`
}

// FinalizedResponse is the last event of a stream.
type FinalizedResponse struct {
	Event  Event           `json:"event"`
	Result *attempt.Result `json:"result"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
