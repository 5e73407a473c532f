package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AttemptStatus is the forward-only lifecycle of a live attempt session.
type AttemptStatus string

const (
	AttemptNotStarted AttemptStatus = "not_started"
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
)

// RecordStatus is the persisted attempt state in PostgreSQL.
type RecordStatus string

const (
	RecordStatusStarted   RecordStatus = "started"
	RecordStatusCompleted RecordStatus = "completed"
)

// QuestionState is the per-question mutable slice of an attempt.
type QuestionState struct {
	QuestionID       string     `json:"question_id"`
	Answer           UserAnswer `json:"answer"`
	TimeSpentSeconds int        `json:"time_spent_seconds"`
	MarkedForReview  bool       `json:"marked_for_review"`
	Visited          bool       `json:"visited"`
}

// QuestionStatus classifies a question for the navigation panel.
type QuestionStatus string

const (
	StatusNotVisited        QuestionStatus = "not_visited"
	StatusNotAnswered       QuestionStatus = "not_answered"
	StatusAnswered          QuestionStatus = "answered"
	StatusMarkedForReview   QuestionStatus = "marked_for_review"
	StatusAnsweredAndMarked QuestionStatus = "answered_and_marked"
)

// AttemptRecord is the persisted mirror of an attempt. The live session is
// authoritative while the attempt is running; this record is a best-effort
// checkpoint until submission finalizes it.
type AttemptRecord struct {
	ID         uuid.UUID             `json:"id"`
	UserID     int                   `json:"user_id"`
	PaperID    string                `json:"paper_id"`
	Status     RecordStatus          `json:"status"`
	StartedAt  time.Time             `json:"started_at"`
	EndedAt    *time.Time            `json:"ended_at,omitempty"`
	Answers    map[string]UserAnswer `json:"answers,omitempty"`
	Times      map[string]int        `json:"times,omitempty"`
	Summary    json.RawMessage       `json:"summary,omitempty"`
	FinalScore *float64              `json:"final_score,omitempty"`
}

// ProctorEventKind labels proctoring signals. Counted, never scored.
type ProctorEventKind string

const (
	ProctorFocusLost      ProctorEventKind = "focus_lost"
	ProctorFullscreenExit ProctorEventKind = "fullscreen_exit"
)

// ProctorCounts summarizes proctor events for the submission summary.
type ProctorCounts struct {
	FocusLost       int `json:"focus_lost"`
	FullscreenExits int `json:"fullscreen_exits"`
}

// ─── Request payloads ───────────────────────────────────────────────

// CreateAttemptRequest starts a new attempt on a paper.
type CreateAttemptRequest struct {
	PaperID string `json:"paper_id" binding:"required,max=64"`
}

// SaveProgressRequest mirrors client-side answers/times into the record.
type SaveProgressRequest struct {
	Answers map[string]UserAnswer `json:"answers"`
	Times   map[string]int        `json:"times"`
}

// SetAnswerRequest stores an answer on the live session.
type SetAnswerRequest struct {
	QuestionID string     `json:"question_id" binding:"required"`
	Answer     UserAnswer `json:"answer" binding:"required"`
}

// QuestionRefRequest targets a question by id (clear, mark toggle).
type QuestionRefRequest struct {
	QuestionID string `json:"question_id" binding:"required"`
}

// NavigateRequest moves the live session's current position.
type NavigateRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}

// ProctorEventRequest reports a focus/fullscreen event.
type ProctorEventRequest struct {
	Kind ProctorEventKind `json:"kind" binding:"required,oneof=focus_lost fullscreen_exit"`
}
