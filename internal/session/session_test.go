package session

import (
	"testing"
	"time"

	"github.com/prepgrid/testprep-backend/internal/model"
)

// fakeClock lets tests control time attribution deterministically.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func testPaper() *model.Paper {
	marks := model.MarksScheme{Correct: 4, Incorrect: -1, Unattempted: 0}
	return &model.Paper{
		PaperID:         "paper-1",
		Label:           "Test Paper",
		Year:            2025,
		Type:            model.PaperTypeMock,
		DurationMinutes: 1,
		TotalMarks:      12,
		Sections: []model.Section{
			{
				SectionID: "sec-a",
				Title:     "Section A",
				Order:     1,
				Questions: []model.Question{
					{
						QuestionID: "q1",
						Type:       model.QuestionSingleChoice,
						Options:    []string{"a", "b", "c", "d"},
						Correct:    model.CorrectAnswer{Type: model.QuestionSingleChoice, OptionIndex: 1},
						Marks:      marks,
						Topics:     []string{"Algebra"},
					},
					{
						QuestionID: "q2",
						Type:       model.QuestionMultiChoice,
						Options:    []string{"a", "b", "c", "d"},
						Correct:    model.CorrectAnswer{Type: model.QuestionMultiChoice, OptionIndices: []int{0, 2}},
						Marks:      marks,
						Topics:     []string{"Algebra"},
					},
				},
			},
			{
				SectionID: "sec-b",
				Title:     "Section B",
				Order:     2,
				Questions: []model.Question{
					{
						QuestionID: "q3",
						Type:       model.QuestionNumerical,
						Correct: model.CorrectAnswer{
							Type:           model.QuestionNumerical,
							AcceptedRanges: []model.AnswerRange{{Min: 4.9, Max: 5.1}},
						},
						Marks:  marks,
						Topics: []string{"Calculus"},
					},
				},
			},
		},
	}
}

func newTestSession(t *testing.T) (*AttemptSession, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := New(testPaper(), 7)
	s.now = clock.Now
	return s, clock
}

func TestNewSessionDefaults(t *testing.T) {
	s, _ := newTestSession(t)

	if got := s.Status(); got != model.AttemptNotStarted {
		t.Fatalf("status = %v, want not_started", got)
	}
	if got := s.RemainingSeconds(); got != 60 {
		t.Fatalf("remaining = %d, want 60", got)
	}
	if got := s.CurrentIndex(); got != 0 {
		t.Fatalf("current = %d, want 0", got)
	}
	if got := len(s.Questions()); got != 3 {
		t.Fatalf("questions = %d, want 3", got)
	}
	for _, st := range s.Statuses() {
		if st != model.StatusNotVisited {
			t.Fatalf("initial status = %v, want not_visited", st)
		}
	}
}

func TestOperationsBeforeStartAreNoOps(t *testing.T) {
	s, _ := newTestSession(t)

	s.GoToQuestion(2)
	s.SetAnswer("q1", model.SingleChoiceAnswer(1))
	s.ToggleMarkForReview("q1")
	s.RecordProctorEvent(model.ProctorFocusLost)

	if got := s.CurrentIndex(); got != 0 {
		t.Errorf("current = %d, want 0", got)
	}
	if got := s.TotalAnswered(); got != 0 {
		t.Errorf("answered = %d, want 0", got)
	}
	if got := s.TotalMarkedForReview(); got != 0 {
		t.Errorf("marked = %d, want 0", got)
	}
	if got := s.ProctorCounts(); got.FocusLost != 0 {
		t.Errorf("focus_lost = %d, want 0", got.FocusLost)
	}
	if s.Submit() {
		t.Error("Submit before start should return false")
	}
}

func TestStartMarksFirstQuestionVisited(t *testing.T) {
	s, _ := newTestSession(t)
	s.Start()

	if got := s.Status(); got != model.AttemptInProgress {
		t.Fatalf("status = %v, want in_progress", got)
	}
	if got := s.QuestionStatus("q1"); got != model.StatusNotAnswered {
		t.Fatalf("q1 status = %v, want not_answered", got)
	}

	// A second Start must not reset anything.
	s.SetAnswer("q1", model.SingleChoiceAnswer(1))
	s.Start()
	if got := s.TotalAnswered(); got != 1 {
		t.Fatalf("answered after double start = %d, want 1", got)
	}
}

func TestNavigationBounds(t *testing.T) {
	s, _ := newTestSession(t)
	s.Start()

	s.GoToQuestion(-1)
	if got := s.CurrentIndex(); got != 0 {
		t.Errorf("after goTo(-1): current = %d, want 0", got)
	}
	s.GoToQuestion(3)
	if got := s.CurrentIndex(); got != 0 {
		t.Errorf("after goTo(3): current = %d, want 0", got)
	}

	s.NextQuestion()
	s.NextQuestion()
	if got := s.CurrentIndex(); got != 2 {
		t.Errorf("current = %d, want 2", got)
	}
	s.NextQuestion() // at last question
	if got := s.CurrentIndex(); got != 2 {
		t.Errorf("next past end: current = %d, want 2", got)
	}

	s.PreviousQuestion()
	s.PreviousQuestion()
	s.PreviousQuestion() // at first question
	if got := s.CurrentIndex(); got != 0 {
		t.Errorf("prev past start: current = %d, want 0", got)
	}
}

func TestNavigationMarksVisited(t *testing.T) {
	s, _ := newTestSession(t)
	s.Start()

	s.GoToQuestion(2)
	if got := s.QuestionStatus("q3"); got != model.StatusNotAnswered {
		t.Errorf("q3 status = %v, want not_answered", got)
	}
	// q2 was skipped over, never visited.
	if got := s.QuestionStatus("q2"); got != model.StatusNotVisited {
		t.Errorf("q2 status = %v, want not_visited", got)
	}
}

func TestSetAndClearAnswer(t *testing.T) {
	s, _ := newTestSession(t)
	s.Start()

	s.SetAnswer("q1", model.SingleChoiceAnswer(2))
	state, ok := s.QuestionState("q1")
	if !ok {
		t.Fatal("q1 state missing")
	}
	if state.Answer.Type != model.AnswerSingleChoice || *state.Answer.SelectedIndex != 2 {
		t.Fatalf("answer = %+v, want single choice index 2", state.Answer)
	}

	// Unknown question id is ignored.
	s.SetAnswer("nope", model.SingleChoiceAnswer(0))
	if got := s.TotalAnswered(); got != 1 {
		t.Fatalf("answered = %d, want 1", got)
	}

	s.ClearAnswer("q1")
	state, _ = s.QuestionState("q1")
	if !state.Answer.IsNone() {
		t.Fatalf("answer after clear = %+v, want none", state.Answer)
	}
	// Visited flag survives the clear.
	if got := s.QuestionStatus("q1"); got != model.StatusNotAnswered {
		t.Fatalf("q1 status after clear = %v, want not_answered", got)
	}
}

func TestEmptyMultiChoiceCountsAsAnswered(t *testing.T) {
	s, _ := newTestSession(t)
	s.Start()

	s.SetAnswer("q2", model.MultiChoiceAnswer())
	if got := s.TotalAnswered(); got != 1 {
		t.Fatalf("answered = %d, want 1", got)
	}
	if got := s.QuestionStatus("q2"); got != model.StatusAnswered {
		t.Fatalf("q2 status = %v, want answered", got)
	}

	s.ClearAnswer("q2")
	if got := s.TotalAnswered(); got != 0 {
		t.Fatalf("answered after clear = %d, want 0", got)
	}
}

func TestQuestionStatusClassification(t *testing.T) {
	s, _ := newTestSession(t)
	s.Start()

	s.SetAnswer("q1", model.SingleChoiceAnswer(0))
	s.ToggleMarkForReview("q1")
	s.GoToQuestion(1)
	s.ToggleMarkForReview("q2")
	s.GoToQuestion(2)

	tests := []struct {
		questionID string
		want       model.QuestionStatus
	}{
		{"q1", model.StatusAnsweredAndMarked},
		{"q2", model.StatusMarkedForReview},
		{"q3", model.StatusNotAnswered},
	}
	for _, tt := range tests {
		if got := s.QuestionStatus(tt.questionID); got != tt.want {
			t.Errorf("QuestionStatus(%s) = %v, want %v", tt.questionID, got, tt.want)
		}
	}

	s.ToggleMarkForReview("q1")
	if got := s.QuestionStatus("q1"); got != model.StatusAnswered {
		t.Errorf("q1 after unmark = %v, want answered", got)
	}
}

func TestTimeAttribution(t *testing.T) {
	s, clock := newTestSession(t)
	s.Start()

	clock.Advance(10 * time.Second)
	s.GoToQuestion(1)

	clock.Advance(7 * time.Second)
	s.GoToQuestion(0)

	clock.Advance(3 * time.Second)
	s.Submit()

	state, _ := s.QuestionState("q1")
	if state.TimeSpentSeconds != 13 {
		t.Errorf("q1 time = %d, want 13", state.TimeSpentSeconds)
	}
	state, _ = s.QuestionState("q2")
	if state.TimeSpentSeconds != 7 {
		t.Errorf("q2 time = %d, want 7", state.TimeSpentSeconds)
	}
	state, _ = s.QuestionState("q3")
	if state.TimeSpentSeconds != 0 {
		t.Errorf("q3 time = %d, want 0", state.TimeSpentSeconds)
	}
}

func TestTimeCommitIsIdempotent(t *testing.T) {
	s, clock := newTestSession(t)
	s.Start()

	clock.Advance(5 * time.Second)

	// Two snapshots with no elapsed time between them must not
	// double-count the five seconds.
	_, times := s.Snapshot()
	if times["q1"] != 5 {
		t.Fatalf("q1 time = %d, want 5", times["q1"])
	}
	_, times = s.Snapshot()
	if times["q1"] != 5 {
		t.Fatalf("q1 time after second snapshot = %d, want 5", times["q1"])
	}

	clock.Advance(2 * time.Second)
	_, times = s.Snapshot()
	if times["q1"] != 7 {
		t.Fatalf("q1 time = %d, want 7", times["q1"])
	}
}

func TestTimeConservation(t *testing.T) {
	s, clock := newTestSession(t)
	s.Start()

	steps := []struct {
		advance time.Duration
		goTo    int
	}{
		{4 * time.Second, 1},
		{6 * time.Second, 2},
		{2 * time.Second, 0},
		{8 * time.Second, 1},
	}
	total := 0
	for _, step := range steps {
		clock.Advance(step.advance)
		total += int(step.advance / time.Second)
		s.GoToQuestion(step.goTo)
	}
	s.Submit()

	sum := 0
	for _, state := range s.FrozenStates() {
		sum += state.TimeSpentSeconds
	}
	if sum != total {
		t.Fatalf("total attributed time = %d, want %d", sum, total)
	}
}

func TestUpdateRemainingTimeClampsNegative(t *testing.T) {
	s, _ := newTestSession(t)
	s.Start()

	// Setting a negative remainder clamps to zero and auto-submits.
	if !s.UpdateRemainingTime(-5) {
		t.Fatal("expected auto-submit on negative time")
	}
	if got := s.RemainingSeconds(); got != 0 {
		t.Fatalf("remaining = %d, want 0", got)
	}
	if got := s.Status(); got != model.AttemptSubmitted {
		t.Fatalf("status = %v, want submitted", got)
	}
}

func TestTickAutoSubmitAtZero(t *testing.T) {
	s, _ := newTestSession(t)
	s.Start()

	for i := 0; i < 59; i++ {
		if s.Tick() {
			t.Fatalf("tick %d triggered submission early", i)
		}
	}
	if !s.Tick() {
		t.Fatal("final tick should trigger submission")
	}
	if got := s.Status(); got != model.AttemptSubmitted {
		t.Fatalf("status = %v, want submitted", got)
	}

	// Further ticks are no-ops on a submitted attempt.
	if s.Tick() {
		t.Fatal("tick after submission should return false")
	}
}

func TestTimeoutBeatsLateEdit(t *testing.T) {
	s, _ := newTestSession(t)
	s.Start()

	s.UpdateRemainingTime(0)

	// Edits that arrive after the timeout must not mutate frozen state.
	s.SetAnswer("q1", model.SingleChoiceAnswer(1))
	s.GoToQuestion(2)
	s.ToggleMarkForReview("q2")
	s.RecordProctorEvent(model.ProctorFullscreenExit)

	if got := s.TotalAnswered(); got != 0 {
		t.Errorf("answered = %d, want 0", got)
	}
	if got := s.CurrentIndex(); got != 0 {
		t.Errorf("current = %d, want 0", got)
	}
	if got := s.ProctorCounts(); got.FullscreenExits != 0 {
		t.Errorf("fullscreen_exits = %d, want 0", got.FullscreenExits)
	}
}

func TestSubmitWinsOnlyOnce(t *testing.T) {
	s, _ := newTestSession(t)
	s.Start()

	if !s.Submit() {
		t.Fatal("first submit should succeed")
	}
	if s.Submit() {
		t.Fatal("second submit should fail")
	}
	if s.UpdateRemainingTime(0) {
		t.Fatal("timeout after submit should not re-submit")
	}
}

func TestProctorCounts(t *testing.T) {
	s, _ := newTestSession(t)
	s.Start()

	s.RecordProctorEvent(model.ProctorFocusLost)
	s.RecordProctorEvent(model.ProctorFocusLost)
	s.RecordProctorEvent(model.ProctorFullscreenExit)

	got := s.ProctorCounts()
	if got.FocusLost != 2 || got.FullscreenExits != 1 {
		t.Fatalf("counts = %+v, want {2 1}", got)
	}
}

func TestSnapshotContainsAllQuestions(t *testing.T) {
	s, _ := newTestSession(t)
	s.Start()
	s.SetAnswer("q3", model.NumericalAnswer(5.0))

	answers, times := s.Snapshot()
	if len(answers) != 3 || len(times) != 3 {
		t.Fatalf("snapshot sizes = %d/%d, want 3/3", len(answers), len(times))
	}
	if answers["q3"].Type != model.AnswerNumerical {
		t.Fatalf("q3 answer type = %v, want numerical", answers["q3"].Type)
	}
	if !answers["q1"].IsNone() {
		t.Fatalf("q1 answer = %+v, want none", answers["q1"])
	}
}

func TestFrozenStatesAreCopies(t *testing.T) {
	s, _ := newTestSession(t)
	s.Start()
	s.SetAnswer("q1", model.SingleChoiceAnswer(1))
	s.Submit()

	frozen := s.FrozenStates()
	mutated := frozen["q1"]
	mutated.Answer = model.NoAnswer()
	frozen["q1"] = mutated

	state, _ := s.QuestionState("q1")
	if state.Answer.IsNone() {
		t.Fatal("mutating the frozen copy leaked into the session")
	}
}
