package evaluation

import (
	"reflect"
	"testing"

	"github.com/prepgrid/testprep-backend/internal/model"
)

var stdMarks = model.MarksScheme{Correct: 4, Incorrect: -1, Unattempted: 0}

func singleChoiceQuestion(id string, correctIndex int, topics ...string) model.Question {
	return model.Question{
		QuestionID: id,
		Type:       model.QuestionSingleChoice,
		Options:    []string{"a", "b", "c", "d"},
		Correct:    model.CorrectAnswer{Type: model.QuestionSingleChoice, OptionIndex: correctIndex},
		Marks:      stdMarks,
		Topics:     topics,
	}
}

func multiChoiceQuestion(id string, correct []int, topics ...string) model.Question {
	return model.Question{
		QuestionID: id,
		Type:       model.QuestionMultiChoice,
		Options:    []string{"a", "b", "c", "d"},
		Correct:    model.CorrectAnswer{Type: model.QuestionMultiChoice, OptionIndices: correct},
		Marks:      stdMarks,
		Topics:     topics,
	}
}

func numericalQuestion(id string, ranges []model.AnswerRange, topics ...string) model.Question {
	return model.Question{
		QuestionID: id,
		Type:       model.QuestionNumerical,
		Correct:    model.CorrectAnswer{Type: model.QuestionNumerical, AcceptedRanges: ranges},
		Marks:      stdMarks,
		Topics:     topics,
	}
}

func TestEvaluateQuestion(t *testing.T) {
	tests := []struct {
		name        string
		question    model.Question
		answer      model.UserAnswer
		wantCorrect bool
		wantMarks   float64
	}{
		{
			name:        "unattempted gets unattempted marks",
			question:    singleChoiceQuestion("q", 1),
			answer:      model.NoAnswer(),
			wantCorrect: false,
			wantMarks:   0,
		},
		{
			name:        "single choice correct",
			question:    singleChoiceQuestion("q", 1),
			answer:      model.SingleChoiceAnswer(1),
			wantCorrect: true,
			wantMarks:   4,
		},
		{
			name:        "single choice incorrect",
			question:    singleChoiceQuestion("q", 1),
			answer:      model.SingleChoiceAnswer(3),
			wantCorrect: false,
			wantMarks:   -1,
		},
		{
			name:        "type mismatch grades incorrect",
			question:    singleChoiceQuestion("q", 1),
			answer:      model.NumericalAnswer(1),
			wantCorrect: false,
			wantMarks:   -1,
		},
		{
			name:        "multi exact set match",
			question:    multiChoiceQuestion("q", []int{0, 2}),
			answer:      model.MultiChoiceAnswer(2, 0),
			wantCorrect: true,
			wantMarks:   4,
		},
		{
			name:        "multi partial overlap is wrong",
			question:    multiChoiceQuestion("q", []int{0, 2}),
			answer:      model.MultiChoiceAnswer(0),
			wantCorrect: false,
			wantMarks:   -1,
		},
		{
			name:        "multi superset is wrong",
			question:    multiChoiceQuestion("q", []int{0, 2}),
			answer:      model.MultiChoiceAnswer(0, 2, 3),
			wantCorrect: false,
			wantMarks:   -1,
		},
		{
			name:        "multi empty selection is wrong but attempted",
			question:    multiChoiceQuestion("q", []int{0, 2}),
			answer:      model.MultiChoiceAnswer(),
			wantCorrect: false,
			wantMarks:   -1,
		},
		{
			name:        "numerical inside range",
			question:    numericalQuestion("q", []model.AnswerRange{{Min: 4.9, Max: 5.1}}),
			answer:      model.NumericalAnswer(4.98),
			wantCorrect: true,
			wantMarks:   4,
		},
		{
			name:        "numerical at inclusive boundary",
			question:    numericalQuestion("q", []model.AnswerRange{{Min: 4.98, Max: 5.1}}),
			answer:      model.NumericalAnswer(4.98),
			wantCorrect: true,
			wantMarks:   4,
		},
		{
			name:        "numerical just below boundary",
			question:    numericalQuestion("q", []model.AnswerRange{{Min: 4.98, Max: 5.1}}),
			answer:      model.NumericalAnswer(4.979999),
			wantCorrect: false,
			wantMarks:   -1,
		},
		{
			name:        "numerical exact match via degenerate range",
			question:    numericalQuestion("q", []model.AnswerRange{{Min: 9, Max: 9}}),
			answer:      model.NumericalAnswer(9),
			wantCorrect: true,
			wantMarks:   4,
		},
		{
			name: "numerical second range accepts",
			question: numericalQuestion("q", []model.AnswerRange{
				{Min: 1, Max: 2},
				{Min: 8, Max: 10},
			}),
			answer:      model.NumericalAnswer(9.5),
			wantCorrect: true,
			wantMarks:   4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotCorrect, gotMarks := EvaluateQuestion(&tt.question, tt.answer)
			if gotCorrect != tt.wantCorrect || gotMarks != tt.wantMarks {
				t.Errorf("EvaluateQuestion() = (%v, %v), want (%v, %v)",
					gotCorrect, gotMarks, tt.wantCorrect, tt.wantMarks)
			}
		})
	}
}

func flatten(paper *model.Paper) []model.FlattenedQuestion {
	return model.FlattenPaper(paper)
}

func threeQuestionPaper() *model.Paper {
	// One correct, one incorrect, one unattempted: score 4 - 1 + 0 = 3,
	// max 12, accuracy 50%.
	return &model.Paper{
		PaperID:         "p1",
		Label:           "Paper One",
		Year:            2025,
		Type:            model.PaperTypeMock,
		DurationMinutes: 10,
		TotalMarks:      12,
		Sections: []model.Section{
			{
				SectionID: "s1",
				Title:     "S1",
				Order:     1,
				Questions: []model.Question{
					singleChoiceQuestion("q1", 1, "Algebra"),
					singleChoiceQuestion("q2", 0, "Algebra"),
					numericalQuestion("q3", []model.AnswerRange{{Min: 5, Max: 5}}, "Calculus"),
				},
			},
		},
	}
}

func TestEvaluateFullAttempt(t *testing.T) {
	paper := threeQuestionPaper()
	states := map[string]model.QuestionState{
		"q1": {QuestionID: "q1", Answer: model.SingleChoiceAnswer(1), TimeSpentSeconds: 30},
		"q2": {QuestionID: "q2", Answer: model.SingleChoiceAnswer(3), TimeSpentSeconds: 45},
		"q3": {QuestionID: "q3", Answer: model.NoAnswer(), TimeSpentSeconds: 15},
	}

	result := Evaluate(paper, flatten(paper), states)

	if result.TotalScore != 3 {
		t.Errorf("TotalScore = %v, want 3", result.TotalScore)
	}
	if result.MaxScore != 12 {
		t.Errorf("MaxScore = %v, want 12", result.MaxScore)
	}
	if result.CorrectCount != 1 || result.IncorrectCount != 1 || result.UnattemptedCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1",
			result.CorrectCount, result.IncorrectCount, result.UnattemptedCount)
	}
	if result.AttemptedQuestions != 2 {
		t.Errorf("AttemptedQuestions = %d, want 2", result.AttemptedQuestions)
	}
	if result.Accuracy != 50 {
		t.Errorf("Accuracy = %v, want 50", result.Accuracy)
	}
	if result.Percentage != 25 {
		t.Errorf("Percentage = %v, want 25", result.Percentage)
	}
	if result.TotalTimeUsedSeconds != 90 {
		t.Errorf("TotalTimeUsedSeconds = %d, want 90", result.TotalTimeUsedSeconds)
	}
	if result.TotalTimeAllowedSeconds != 600 {
		t.Errorf("TotalTimeAllowedSeconds = %d, want 600", result.TotalTimeAllowedSeconds)
	}
	if result.AvgTimePerQuestion != 30 {
		t.Errorf("AvgTimePerQuestion = %d, want 30", result.AvgTimePerQuestion)
	}
	if len(result.QuestionResults) != 3 {
		t.Fatalf("QuestionResults = %d, want 3", len(result.QuestionResults))
	}
}

func TestEvaluateMissingStatesGradeUnattempted(t *testing.T) {
	paper := threeQuestionPaper()

	result := Evaluate(paper, flatten(paper), map[string]model.QuestionState{})

	if result.UnattemptedCount != 3 {
		t.Errorf("UnattemptedCount = %d, want 3", result.UnattemptedCount)
	}
	if result.TotalScore != 0 {
		t.Errorf("TotalScore = %v, want 0", result.TotalScore)
	}
	if result.Accuracy != 0 {
		t.Errorf("Accuracy = %v, want 0 (guarded division)", result.Accuracy)
	}
}

func TestEvaluateEmptyPaper(t *testing.T) {
	paper := &model.Paper{PaperID: "empty", Label: "Empty", DurationMinutes: 10}

	result := Evaluate(paper, nil, nil)

	if result.TotalQuestions != 0 || result.Percentage != 0 || result.AvgTimePerQuestion != 0 {
		t.Errorf("empty paper result = %+v, want all-zero aggregates", result)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	paper := threeQuestionPaper()
	states := map[string]model.QuestionState{
		"q1": {QuestionID: "q1", Answer: model.SingleChoiceAnswer(1), TimeSpentSeconds: 10},
		"q2": {QuestionID: "q2", Answer: model.SingleChoiceAnswer(0), TimeSpentSeconds: 20},
	}

	first := Evaluate(paper, flatten(paper), states)
	for i := 0; i < 10; i++ {
		if got := Evaluate(paper, flatten(paper), states); !reflect.DeepEqual(first, got) {
			t.Fatalf("run %d diverged from first result", i)
		}
	}
}

func topicPaper() *model.Paper {
	return &model.Paper{
		PaperID:         "topics",
		Label:           "Topics",
		Year:            2025,
		DurationMinutes: 10,
		Sections: []model.Section{
			{
				SectionID: "s1",
				Title:     "S1",
				Order:     1,
				Questions: []model.Question{
					singleChoiceQuestion("q1", 0, "Mechanics", "Vectors"),
					singleChoiceQuestion("q2", 0, "Mechanics"),
					singleChoiceQuestion("q3", 0, "Mechanics"),
					singleChoiceQuestion("q4", 0, "Optics"),
				},
			},
		},
	}
}

func TestTopicFanOutAndOrdering(t *testing.T) {
	paper := topicPaper()
	states := map[string]model.QuestionState{
		"q1": {Answer: model.SingleChoiceAnswer(0), TimeSpentSeconds: 10},
		"q2": {Answer: model.SingleChoiceAnswer(0), TimeSpentSeconds: 20},
		"q3": {Answer: model.SingleChoiceAnswer(1), TimeSpentSeconds: 30},
		"q4": {Answer: model.SingleChoiceAnswer(0), TimeSpentSeconds: 40},
	}

	result := Evaluate(paper, flatten(paper), states)

	if len(result.TopicStats) != 3 {
		t.Fatalf("topics = %d, want 3", len(result.TopicStats))
	}

	// Sorted by coverage descending: Mechanics (3), then Vectors and
	// Optics (1 each) in first-encountered order.
	if result.TopicStats[0].Topic != "Mechanics" {
		t.Errorf("first topic = %s, want Mechanics", result.TopicStats[0].Topic)
	}
	if result.TopicStats[1].Topic != "Vectors" || result.TopicStats[2].Topic != "Optics" {
		t.Errorf("tie order = %s, %s, want Vectors, Optics",
			result.TopicStats[1].Topic, result.TopicStats[2].Topic)
	}

	mech := result.TopicStats[0]
	if mech.TotalQuestions != 3 || mech.CorrectCount != 2 || mech.IncorrectCount != 1 {
		t.Errorf("Mechanics = %+v, want 3 total, 2 correct, 1 incorrect", mech)
	}
	if mech.TotalTimeSeconds != 60 {
		t.Errorf("Mechanics time = %d, want 60", mech.TotalTimeSeconds)
	}

	// q1 fans out into both of its topics.
	vectors := result.TopicStats[1]
	if vectors.TotalQuestions != 1 || vectors.CorrectCount != 1 {
		t.Errorf("Vectors = %+v, want 1 total, 1 correct", vectors)
	}
}

func TestTopicStrengthThreshold(t *testing.T) {
	paper := topicPaper()

	// Only one Optics question attempted: below the threshold, so the
	// topic stays moderate even at 100% accuracy.
	states := map[string]model.QuestionState{
		"q4": {Answer: model.SingleChoiceAnswer(0)},
	}
	result := Evaluate(paper, flatten(paper), states)
	for _, ts := range result.TopicStats {
		if ts.Topic == "Optics" && ts.Strength != model.StrengthModerate {
			t.Errorf("Optics strength = %v, want moderate below attempt threshold", ts.Strength)
		}
	}

	// Three attempted Mechanics questions, all correct: strong.
	states = map[string]model.QuestionState{
		"q1": {Answer: model.SingleChoiceAnswer(0)},
		"q2": {Answer: model.SingleChoiceAnswer(0)},
		"q3": {Answer: model.SingleChoiceAnswer(0)},
	}
	result = Evaluate(paper, flatten(paper), states)
	if got := result.TopicStats[0].Strength; got != model.StrengthStrong {
		t.Errorf("Mechanics strength = %v, want strong", got)
	}

	// All three wrong: weak.
	states = map[string]model.QuestionState{
		"q1": {Answer: model.SingleChoiceAnswer(1)},
		"q2": {Answer: model.SingleChoiceAnswer(1)},
		"q3": {Answer: model.SingleChoiceAnswer(1)},
	}
	result = Evaluate(paper, flatten(paper), states)
	if got := result.TopicStats[0].Strength; got != model.StrengthWeak {
		t.Errorf("Mechanics strength = %v, want weak", got)
	}

	// Two of three correct is 66.7%: moderate.
	states = map[string]model.QuestionState{
		"q1": {Answer: model.SingleChoiceAnswer(0)},
		"q2": {Answer: model.SingleChoiceAnswer(0)},
		"q3": {Answer: model.SingleChoiceAnswer(1)},
	}
	result = Evaluate(paper, flatten(paper), states)
	if got := result.TopicStats[0].Strength; got != model.StrengthModerate {
		t.Errorf("Mechanics strength = %v, want moderate", got)
	}
}

func TestExactSetMatchDeduplicates(t *testing.T) {
	tests := []struct {
		got, want []int
		expect    bool
	}{
		{[]int{0, 2}, []int{2, 0}, true},
		{[]int{0, 0, 2}, []int{0, 2}, true},
		{[]int{0}, []int{0, 2}, false},
		{[]int{}, []int{}, true},
		{[]int{}, []int{1}, false},
		{nil, nil, true},
	}
	for _, tt := range tests {
		if got := exactSetMatch(tt.got, tt.want); got != tt.expect {
			t.Errorf("exactSetMatch(%v, %v) = %v, want %v", tt.got, tt.want, got, tt.expect)
		}
	}
}
