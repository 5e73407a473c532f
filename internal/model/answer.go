package model

// AnswerType tags a UserAnswer variant. It shares tag strings with
// QuestionType plus the extra "none" state for unattempted questions.
type AnswerType string

const (
	AnswerNone         AnswerType = "none"
	AnswerSingleChoice AnswerType = "mcq_single"
	AnswerMultiChoice  AnswerType = "mcq_multi"
	AnswerNumerical    AnswerType = "nat"
)

// Matches reports whether the answer tag corresponds to a question type.
func (t AnswerType) Matches(q QuestionType) bool {
	return string(t) == string(q)
}

// UserAnswer is a tagged variant holding a candidate's response.
// Only the field matching Type is meaningful.
//
// An mcq_multi answer with an empty SelectedIndices slice is a deliberate
// policy choice: it still counts as "answered" (the candidate touched the
// question) and grades as incorrect. ClearAnswer is the only way back to
// the none state.
type UserAnswer struct {
	Type            AnswerType `json:"type"`
	SelectedIndex   *int       `json:"selected_index,omitempty"`
	SelectedIndices []int      `json:"selected_indices,omitempty"`
	Value           *float64   `json:"value,omitempty"`
}

// NoAnswer returns the unattempted answer variant.
func NoAnswer() UserAnswer {
	return UserAnswer{Type: AnswerNone}
}

// SingleChoiceAnswer builds an mcq_single answer.
func SingleChoiceAnswer(index int) UserAnswer {
	return UserAnswer{Type: AnswerSingleChoice, SelectedIndex: &index}
}

// MultiChoiceAnswer builds an mcq_multi answer.
func MultiChoiceAnswer(indices ...int) UserAnswer {
	if indices == nil {
		indices = []int{}
	}
	return UserAnswer{Type: AnswerMultiChoice, SelectedIndices: indices}
}

// NumericalAnswer builds a nat answer.
func NumericalAnswer(value float64) UserAnswer {
	return UserAnswer{Type: AnswerNumerical, Value: &value}
}

// IsNone reports whether the answer is the unattempted variant.
func (a UserAnswer) IsNone() bool {
	return a.Type == AnswerNone || a.Type == ""
}
