// Package analytics holds the pure formatting and derived-statistics
// helpers consumed by result and history views.
package analytics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/prepgrid/testprep-backend/internal/model"
)

const notAttempted = "Not Attempted"

// optionLetter maps a zero-based option index to its display letter (0 → A).
func optionLetter(index int) string {
	return string(rune('A' + index))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatUserAnswer renders a stored answer as human-readable text.
// Multi-choice letters are sorted alphabetically and comma-joined.
func FormatUserAnswer(answer model.UserAnswer) string {
	switch answer.Type {
	case model.AnswerSingleChoice:
		if answer.SelectedIndex == nil {
			return notAttempted
		}
		return "Option " + optionLetter(*answer.SelectedIndex)

	case model.AnswerMultiChoice:
		if len(answer.SelectedIndices) == 0 {
			return notAttempted
		}
		return joinLetters(answer.SelectedIndices)

	case model.AnswerNumerical:
		if answer.Value == nil {
			return notAttempted
		}
		return formatNumber(*answer.Value)

	default:
		return notAttempted
	}
}

// FormatCorrectAnswer renders a paper's correct answer as display text.
// Numerical ranges render as "min" when min == max, otherwise "min to max",
// with multiple accepted ranges joined by " or ".
func FormatCorrectAnswer(correct model.CorrectAnswer) string {
	switch correct.Type {
	case model.QuestionSingleChoice:
		return "Option " + optionLetter(correct.OptionIndex)

	case model.QuestionMultiChoice:
		return joinLetters(correct.OptionIndices)

	case model.QuestionNumerical:
		parts := make([]string, 0, len(correct.AcceptedRanges))
		for _, r := range correct.AcceptedRanges {
			if r.Min == r.Max {
				parts = append(parts, formatNumber(r.Min))
			} else {
				parts = append(parts, fmt.Sprintf("%s to %s", formatNumber(r.Min), formatNumber(r.Max)))
			}
		}
		return strings.Join(parts, " or ")

	default:
		return "Unknown"
	}
}

func joinLetters(indices []int) string {
	letters := make([]string, 0, len(indices))
	for _, idx := range indices {
		letters = append(letters, optionLetter(idx))
	}
	sort.Strings(letters)
	return strings.Join(letters, ", ")
}

// FormatClock renders seconds as HH:MM:SS, or MM:SS when showHours is false
// or the hour field is zero. All fields are zero-padded.
func FormatClock(totalSeconds int, showHours bool) string {
	hours := totalSeconds / 3600
	minutes := totalSeconds % 3600 / 60
	seconds := totalSeconds % 60

	if showHours && hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// TimerZone labels the remaining-time fraction for display styling:
// "danger" inside the last 5%, "warning" inside the last 15%, else "".
func TimerZone(remainingSeconds, totalSeconds int) string {
	if totalSeconds <= 0 {
		return ""
	}
	fraction := float64(remainingSeconds) / float64(totalSeconds)
	switch {
	case fraction <= 0.05:
		return "danger"
	case fraction <= 0.15:
		return "warning"
	default:
		return ""
	}
}

// AvgTimePerQuestion rounds totalTimeSeconds over questionCount; 0 when
// there are no questions.
func AvgTimePerQuestion(totalTimeSeconds, questionCount int) int {
	if questionCount == 0 {
		return 0
	}
	return int(float64(totalTimeSeconds)/float64(questionCount) + 0.5)
}
