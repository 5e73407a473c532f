package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing    Action = "ping"
	ActionProctor Action = "proctor"
	ActionSubmit  Action = "submit"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ProctorRequest is sent by the client to report a focus or fullscreen
// violation.
type ProctorRequest struct {
	Action Action `json:"action"`
	Kind   string `json:"kind"`
}

// SubmitRequest is sent by the client to finish and grade the attempt.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError  Event = "error"
	EventTick   Event = "tick"
	EventGraded Event = "graded"
	EventPong   Event = "pong"
)

// TickResponse is pushed once per second while the attempt runs. The
// server clock is authoritative; clients render but never decide time.
type TickResponse struct {
	Event     Event `json:"event"`
	Remaining int   `json:"remaining_seconds"`
	Answered  int   `json:"answered"`
	Marked    int   `json:"marked"`
}

// GradedResponse is the terminal event: pushed once on submission,
// whether explicit or by timeout.
type GradedResponse struct {
	Event    Event   `json:"event"`
	Score    float64 `json:"score"`
	MaxScore float64 `json:"max_score"`
	TimedOut bool    `json:"timed_out"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
