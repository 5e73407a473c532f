// Package evaluation turns a frozen attempt plus its paper into a graded
// result. Everything here is pure and deterministic: identical inputs yield
// identical output, nothing reads the wall clock, and malformed input
// degrades to "incorrect" rather than failing — grading always terminates
// with a result.
package evaluation

import (
	"math"
	"sort"

	"github.com/prepgrid/testprep-backend/internal/model"
)

// minAttemptedForStrength gates strength classification. Below this many
// attempted questions a topic stays moderate regardless of accuracy, so a
// single lucky or unlucky answer never labels a topic strong or weak.
const minAttemptedForStrength = 2

// EvaluateQuestion grades one question against a stored answer.
//
// Unattempted answers score the unattempted marks and never reach the
// correctness check. A stored answer whose variant does not match the
// question's correct-answer type grades as incorrect — a safety net against
// future variant additions; it should not occur when SetAnswer contracts
// are honored.
func EvaluateQuestion(q *model.Question, answer model.UserAnswer) (isCorrect bool, marks float64) {
	if answer.IsNone() {
		return false, q.Marks.Unattempted
	}
	if !answer.Type.Matches(q.Correct.Type) {
		return false, q.Marks.Incorrect
	}

	switch q.Correct.Type {
	case model.QuestionSingleChoice:
		isCorrect = answer.SelectedIndex != nil && *answer.SelectedIndex == q.Correct.OptionIndex

	case model.QuestionMultiChoice:
		isCorrect = exactSetMatch(answer.SelectedIndices, q.Correct.OptionIndices)

	case model.QuestionNumerical:
		if answer.Value != nil {
			for _, r := range q.Correct.AcceptedRanges {
				if *answer.Value >= r.Min && *answer.Value <= r.Max {
					isCorrect = true
					break
				}
			}
		}
	}

	if isCorrect {
		return true, q.Marks.Correct
	}
	return false, q.Marks.Incorrect
}

// exactSetMatch reports whether got and want contain exactly the same
// members. Partial overlap is always wrong; there is no partial credit.
func exactSetMatch(got, want []int) bool {
	wantSet := make(map[int]struct{}, len(want))
	for _, idx := range want {
		wantSet[idx] = struct{}{}
	}
	gotSet := make(map[int]struct{}, len(got))
	for _, idx := range got {
		gotSet[idx] = struct{}{}
	}
	if len(gotSet) != len(wantSet) {
		return false
	}
	for idx := range wantSet {
		if _, ok := gotSet[idx]; !ok {
			return false
		}
	}
	return true
}

// Evaluate grades a complete frozen attempt. Questions missing from the
// state mapping grade as unattempted with zero time.
func Evaluate(
	paper *model.Paper,
	questions []model.FlattenedQuestion,
	states map[string]model.QuestionState,
) *model.ExamResult {
	questionResults := make([]model.QuestionResult, 0, len(questions))
	resultByID := make(map[string]*model.QuestionResult, len(questions))

	var totalScore, maxScore float64
	var correctCount, incorrectCount, unattemptedCount, totalTimeUsed int

	for i := range questions {
		q := &questions[i]
		answer := model.NoAnswer()
		timeSpent := 0
		if state, ok := states[q.QuestionID]; ok {
			answer = state.Answer
			timeSpent = state.TimeSpentSeconds
		}

		isCorrect, marks := EvaluateQuestion(&q.Question, answer)

		questionResults = append(questionResults, model.QuestionResult{
			QuestionID:       q.QuestionID,
			IsCorrect:        isCorrect,
			MarksObtained:    marks,
			UserAnswer:       answer,
			CorrectAnswer:    q.Correct,
			TimeSpentSeconds: timeSpent,
			Topics:           q.Topics,
		})
		resultByID[q.QuestionID] = &questionResults[len(questionResults)-1]

		totalScore += marks
		maxScore += q.Marks.Correct
		totalTimeUsed += timeSpent

		switch {
		case answer.IsNone():
			unattemptedCount++
		case isCorrect:
			correctCount++
		default:
			incorrectCount++
		}
	}

	attempted := correctCount + incorrectCount

	result := &model.ExamResult{
		PaperID:                 paper.PaperID,
		PaperLabel:              paper.Label,
		TotalScore:              totalScore,
		MaxScore:                maxScore,
		TotalQuestions:          len(questions),
		AttemptedQuestions:      attempted,
		CorrectCount:            correctCount,
		IncorrectCount:          incorrectCount,
		UnattemptedCount:        unattemptedCount,
		TotalTimeUsedSeconds:    totalTimeUsed,
		TotalTimeAllowedSeconds: paper.DurationMinutes * 60,
		TopicStats:              calculateTopicStats(questions, resultByID),
		QuestionResults:         questionResults,
	}

	// Ratios all guard their zero denominators.
	if maxScore > 0 {
		result.Percentage = totalScore / maxScore * 100
	}
	if attempted > 0 {
		result.Accuracy = float64(correctCount) / float64(attempted) * 100
	}
	if len(questions) > 0 {
		result.AvgTimePerQuestion = int(math.Round(float64(totalTimeUsed) / float64(len(questions))))
	}

	return result
}

// calculateTopicStats fans each question's single outcome out to every topic
// tag it carries. Topics are ordered by coverage (totalQuestions descending)
// with first-encountered order as the stable tie break.
func calculateTopicStats(
	questions []model.FlattenedQuestion,
	resultByID map[string]*model.QuestionResult,
) []model.TopicStats {
	byTopic := make(map[string]*model.TopicStats)
	var order []string

	for i := range questions {
		q := &questions[i]
		res, ok := resultByID[q.QuestionID]
		if !ok {
			continue
		}

		for _, topic := range q.Topics {
			stats, ok := byTopic[topic]
			if !ok {
				stats = &model.TopicStats{Topic: topic, Strength: model.StrengthModerate}
				byTopic[topic] = stats
				order = append(order, topic)
			}

			stats.TotalQuestions++
			stats.MaxMarks += q.Marks.Correct
			stats.TotalTimeSeconds += res.TimeSpentSeconds

			if res.UserAnswer.IsNone() {
				stats.UnattemptedCount++
				continue
			}
			stats.AttemptedQuestions++
			stats.MarksObtained += res.MarksObtained
			if res.IsCorrect {
				stats.CorrectCount++
			} else {
				stats.IncorrectCount++
			}
		}
	}

	out := make([]model.TopicStats, 0, len(order))
	for _, topic := range order {
		stats := byTopic[topic]

		if stats.AttemptedQuestions > 0 {
			stats.Accuracy = float64(stats.CorrectCount) / float64(stats.AttemptedQuestions) * 100
		}
		if stats.TotalQuestions > 0 {
			stats.AvgTimePerQuestion = int(math.Round(float64(stats.TotalTimeSeconds) / float64(stats.TotalQuestions)))
		}
		if stats.AttemptedQuestions >= minAttemptedForStrength {
			switch {
			case stats.Accuracy >= 80:
				stats.Strength = model.StrengthStrong
			case stats.Accuracy < 50:
				stats.Strength = model.StrengthWeak
			default:
				stats.Strength = model.StrengthModerate
			}
		}

		out = append(out, *stats)
	}

	// Stable sort preserves first-encountered order among equal counts.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalQuestions > out[j].TotalQuestions
	})
	return out
}
