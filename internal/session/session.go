package session

import (
	"sync"
	"time"

	"github.com/prepgrid/testprep-backend/internal/model"
)

// AttemptSession is the live state machine for one candidate's run through
// one paper. It is an explicitly owned value: the registry holds it, the
// service layer drives it, and nothing else mutates it.
//
// Lifecycle is forward-only: not_started → in_progress → submitted.
// Operations invoked in the wrong state or with out-of-range arguments are
// silent no-ops — UI-driven races (double clicks, stale views, a late timer
// tick) are expected and must not corrupt state.
//
// All exported methods take the session mutex, so a timer tick that expires
// the attempt fully completes (including auto-submit) before any queued
// navigation or answer edit runs.
type AttemptSession struct {
	mu sync.Mutex

	paper     *model.Paper
	questions []model.FlattenedQuestion

	userID    int
	status    model.AttemptStatus
	current   int
	remaining int
	states    map[string]*model.QuestionState

	// viewStart anchors time attribution for the current question.
	// Zero means no anchor (not started or already submitted).
	viewStart time.Time

	focusLost       int
	fullscreenExits int

	now func() time.Time
}

// New builds a fresh session from a paper: one zeroed QuestionState per
// question, full duration on the clock, position 0, status not_started.
// Any prior state for the same attempt is simply replaced by the caller.
func New(paper *model.Paper, userID int) *AttemptSession {
	questions := model.FlattenPaper(paper)
	states := make(map[string]*model.QuestionState, len(questions))
	for _, q := range questions {
		states[q.QuestionID] = &model.QuestionState{
			QuestionID: q.QuestionID,
			Answer:     model.NoAnswer(),
		}
	}
	return &AttemptSession{
		paper:     paper,
		questions: questions,
		userID:    userID,
		status:    model.AttemptNotStarted,
		remaining: paper.DurationMinutes * 60,
		states:    states,
		now:       time.Now,
	}
}

// Start transitions to in_progress, marks question 0 visited, and anchors
// the view clock. No-op unless not_started with at least one question.
func (s *AttemptSession) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != model.AttemptNotStarted || len(s.questions) == 0 {
		return
	}
	s.status = model.AttemptInProgress
	s.states[s.questions[0].QuestionID].Visited = true
	s.viewStart = s.now()
}

// GoToQuestion commits viewing time for the current question, then moves to
// index and re-anchors. No-op unless in_progress and index is in range.
func (s *AttemptSession) GoToQuestion(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goTo(index)
}

// NextQuestion is a bounded wrapper; no-op at the last question.
func (s *AttemptSession) NextQuestion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goTo(s.current + 1)
}

// PreviousQuestion is a bounded wrapper; no-op at the first question.
func (s *AttemptSession) PreviousQuestion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goTo(s.current - 1)
}

func (s *AttemptSession) goTo(index int) {
	if s.status != model.AttemptInProgress || index < 0 || index >= len(s.questions) {
		return
	}
	s.commitViewTime()
	s.states[s.questions[index].QuestionID].Visited = true
	s.current = index
}

// SetAnswer overwrites the stored answer for a question. It does not touch
// visited/marked flags or timing. The answer variant matching the question
// type is a caller contract; a mismatch is stored as-is and grades as
// incorrect at evaluation. No-op unless in_progress.
func (s *AttemptSession) SetAnswer(questionID string, answer model.UserAnswer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != model.AttemptInProgress {
		return
	}
	if state, ok := s.states[questionID]; ok {
		state.Answer = answer
	}
}

// ClearAnswer resets a question's answer to none. No-op unless in_progress.
func (s *AttemptSession) ClearAnswer(questionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != model.AttemptInProgress {
		return
	}
	if state, ok := s.states[questionID]; ok {
		state.Answer = model.NoAnswer()
	}
}

// ToggleMarkForReview flips the review flag independent of answer state.
func (s *AttemptSession) ToggleMarkForReview(questionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != model.AttemptInProgress {
		return
	}
	if state, ok := s.states[questionID]; ok {
		state.MarkedForReview = !state.MarkedForReview
	}
}

// UpdateRemainingTime sets the clock to max(0, seconds). Hitting zero while
// in_progress triggers submission from inside the same critical section, so
// a timeout always wins against a last-moment edit. Returns true when this
// call caused the submission.
func (s *AttemptSession) UpdateRemainingTime(seconds int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seconds < 0 {
		seconds = 0
	}
	s.remaining = seconds

	if s.remaining == 0 && s.status == model.AttemptInProgress {
		s.submit()
		return true
	}
	return false
}

// Tick advances the clock by one second. Convenience wrapper for the
// external tick source; same auto-submit semantics as UpdateRemainingTime.
func (s *AttemptSession) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != model.AttemptInProgress {
		return false
	}
	s.remaining--
	if s.remaining <= 0 {
		s.remaining = 0
		s.submit()
		return true
	}
	return false
}

// Submit flushes viewing time for the current question and freezes the
// attempt. No-op unless in_progress. Returns true on the actual transition.
func (s *AttemptSession) Submit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != model.AttemptInProgress {
		return false
	}
	s.submit()
	return true
}

// submit is the lock-held transition shared by Submit and the timeout path.
func (s *AttemptSession) submit() {
	s.commitViewTime()
	s.viewStart = time.Time{}
	s.status = model.AttemptSubmitted
}

// commitViewTime attributes wall-clock time since the last anchor to the
// current question, truncated to whole seconds, then re-anchors. Calling it
// twice in immediate succession adds zero the second time.
func (s *AttemptSession) commitViewTime() {
	if s.viewStart.IsZero() || len(s.questions) == 0 {
		return
	}
	now := s.now()
	delta := int(now.Sub(s.viewStart) / time.Second)
	if delta > 0 {
		s.states[s.questions[s.current].QuestionID].TimeSpentSeconds += delta
	}
	s.viewStart = now
}

// RecordProctorEvent bumps the matching event counter. Counts ride along in
// the submission summary; they are never scored. No-op unless in_progress.
func (s *AttemptSession) RecordProctorEvent(kind model.ProctorEventKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != model.AttemptInProgress {
		return
	}
	switch kind {
	case model.ProctorFocusLost:
		s.focusLost++
	case model.ProctorFullscreenExit:
		s.fullscreenExits++
	}
}

// ─── Derived queries (no mutation) ──────────────────────────────────

// Status returns the lifecycle state.
func (s *AttemptSession) Status() model.AttemptStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// UserID returns the owning candidate.
func (s *AttemptSession) UserID() int {
	return s.userID
}

// Paper returns the immutable exam document.
func (s *AttemptSession) Paper() *model.Paper {
	return s.paper
}

// Questions returns the flattened navigation-order projection.
func (s *AttemptSession) Questions() []model.FlattenedQuestion {
	return s.questions
}

// CurrentIndex returns the current question position.
func (s *AttemptSession) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// RemainingSeconds returns the seconds left on the clock.
func (s *AttemptSession) RemainingSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// QuestionState returns a copy of one question's state.
func (s *AttemptSession) QuestionState(questionID string) (model.QuestionState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[questionID]
	if !ok {
		return model.QuestionState{}, false
	}
	return *state, true
}

// QuestionStatus classifies a question for the navigation panel from its
// (answered, marked, visited) triple.
func (s *AttemptSession) QuestionStatus(questionID string) model.QuestionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[questionID]
	if !ok {
		return model.StatusNotVisited
	}
	return classify(state)
}

func classify(state *model.QuestionState) model.QuestionStatus {
	answered := !state.Answer.IsNone()
	switch {
	case answered && state.MarkedForReview:
		return model.StatusAnsweredAndMarked
	case state.MarkedForReview:
		return model.StatusMarkedForReview
	case answered:
		return model.StatusAnswered
	case state.Visited:
		return model.StatusNotAnswered
	default:
		return model.StatusNotVisited
	}
}

// Statuses returns the navigation-panel classification for every question,
// in exam-wide order.
func (s *AttemptSession) Statuses() []model.QuestionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.QuestionStatus, len(s.questions))
	for i, q := range s.questions {
		out[i] = classify(s.states[q.QuestionID])
	}
	return out
}

// TotalAnswered counts questions with a non-none answer.
func (s *AttemptSession) TotalAnswered() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, state := range s.states {
		if !state.Answer.IsNone() {
			n++
		}
	}
	return n
}

// TotalMarkedForReview counts flagged questions.
func (s *AttemptSession) TotalMarkedForReview() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, state := range s.states {
		if state.MarkedForReview {
			n++
		}
	}
	return n
}

// ProctorCounts returns the recorded proctor event counters.
func (s *AttemptSession) ProctorCounts() model.ProctorCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.ProctorCounts{FocusLost: s.focusLost, FullscreenExits: s.fullscreenExits}
}

// Snapshot returns checkpoint-ready copies of the answer and time mappings.
// Viewing time for the current question is flushed first so the snapshot is
// consistent with the wall clock.
func (s *AttemptSession) Snapshot() (answers map[string]model.UserAnswer, times map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == model.AttemptInProgress {
		s.commitViewTime()
	}
	answers = make(map[string]model.UserAnswer, len(s.states))
	times = make(map[string]int, len(s.states))
	for id, state := range s.states {
		answers[id] = state.Answer
		times[id] = state.TimeSpentSeconds
	}
	return answers, times
}

// FrozenStates returns a value copy of the per-question mapping. Intended
// for evaluation after submission; the copy shields the frozen session from
// any downstream mutation.
func (s *AttemptSession) FrozenStates() map[string]model.QuestionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]model.QuestionState, len(s.states))
	for id, state := range s.states {
		out[id] = *state
	}
	return out
}
