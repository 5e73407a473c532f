package analytics

import (
	"testing"

	"github.com/prepgrid/testprep-backend/internal/model"
)

func TestFormatUserAnswer(t *testing.T) {
	tests := []struct {
		name   string
		answer model.UserAnswer
		want   string
	}{
		{"none", model.NoAnswer(), "Not Attempted"},
		{"single choice", model.SingleChoiceAnswer(0), "Option A"},
		{"single choice later option", model.SingleChoiceAnswer(3), "Option D"},
		{"multi sorted letters", model.MultiChoiceAnswer(2, 0), "A, C"},
		{"multi empty selection", model.MultiChoiceAnswer(), "Not Attempted"},
		{"numerical integer", model.NumericalAnswer(42), "42"},
		{"numerical decimal", model.NumericalAnswer(4.98), "4.98"},
		{"numerical trims trailing zeros", model.NumericalAnswer(5.10), "5.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatUserAnswer(tt.answer); got != tt.want {
				t.Errorf("FormatUserAnswer() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatCorrectAnswer(t *testing.T) {
	tests := []struct {
		name    string
		correct model.CorrectAnswer
		want    string
	}{
		{
			"single choice",
			model.CorrectAnswer{Type: model.QuestionSingleChoice, OptionIndex: 1},
			"Option B",
		},
		{
			"multi choice",
			model.CorrectAnswer{Type: model.QuestionMultiChoice, OptionIndices: []int{3, 1}},
			"B, D",
		},
		{
			"numerical exact",
			model.CorrectAnswer{Type: model.QuestionNumerical, AcceptedRanges: []model.AnswerRange{{Min: 9, Max: 9}}},
			"9",
		},
		{
			"numerical range",
			model.CorrectAnswer{Type: model.QuestionNumerical, AcceptedRanges: []model.AnswerRange{{Min: 4.9, Max: 5.1}}},
			"4.9 to 5.1",
		},
		{
			"numerical multiple ranges",
			model.CorrectAnswer{Type: model.QuestionNumerical, AcceptedRanges: []model.AnswerRange{
				{Min: 1, Max: 2}, {Min: 9, Max: 9},
			}},
			"1 to 2 or 9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatCorrectAnswer(tt.correct); got != tt.want {
				t.Errorf("FormatCorrectAnswer() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds   int
		showHours bool
		want      string
	}{
		{0, false, "00:00"},
		{59, false, "00:59"},
		{65, false, "01:05"},
		{3600, false, "60:00"},
		{3600, true, "01:00:00"},
		{3725, true, "01:02:05"},
		{125, true, "02:05"}, // hours shown only when nonzero
	}

	for _, tt := range tests {
		if got := FormatClock(tt.seconds, tt.showHours); got != tt.want {
			t.Errorf("FormatClock(%d, %v) = %q, want %q", tt.seconds, tt.showHours, got, tt.want)
		}
	}
}

func TestTimerZone(t *testing.T) {
	tests := []struct {
		remaining, total int
		want             string
	}{
		{100, 100, ""},
		{16, 100, ""},
		{15, 100, "warning"},
		{6, 100, "warning"},
		{5, 100, "danger"},
		{0, 100, "danger"},
		{10, 0, ""}, // degenerate total
	}

	for _, tt := range tests {
		if got := TimerZone(tt.remaining, tt.total); got != tt.want {
			t.Errorf("TimerZone(%d, %d) = %q, want %q", tt.remaining, tt.total, got, tt.want)
		}
	}
}

func TestAvgTimePerQuestion(t *testing.T) {
	tests := []struct {
		total, count, want int
	}{
		{0, 0, 0},
		{90, 3, 30},
		{100, 3, 33},
		{110, 3, 37}, // 36.67 rounds up
	}

	for _, tt := range tests {
		if got := AvgTimePerQuestion(tt.total, tt.count); got != tt.want {
			t.Errorf("AvgTimePerQuestion(%d, %d) = %d, want %d", tt.total, tt.count, got, tt.want)
		}
	}
}
