package analytics

import "github.com/prepgrid/testprep-backend/internal/model"

// TrendWindow is the trailing window used for the score moving average.
const TrendWindow = 3

// ScoreTrend computes a trailing moving average over a chronological score
// sequence. Entry i averages scores[max(0,i-window+1) .. i], so early
// entries average over the shorter available prefix.
func ScoreTrend(scores []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	trend := make([]float64, len(scores))
	for i := range scores {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		sum := 0.0
		for _, s := range scores[start : i+1] {
			sum += s
		}
		trend[i] = sum / float64(i+1-start)
	}
	return trend
}

// TimeBucket labels how a question's time spend compares to the paper's
// even per-question budget.
type TimeBucket string

const (
	BucketFast TimeBucket = "fast" // at most half the budget
	BucketOK   TimeBucket = "ok"
	BucketSlow TimeBucket = "slow" // at least double the budget
)

// QuestionTimeBucket is one question's pacing classification.
type QuestionTimeBucket struct {
	QuestionID       string     `json:"question_id"`
	TimeSpentSeconds int        `json:"time_spent_seconds"`
	BudgetSeconds    int        `json:"budget_seconds"`
	Bucket           TimeBucket `json:"bucket"`
}

// TimeBuckets classifies each graded question's pacing against an even
// split of the allowed time. Returns nil when there are no questions or no
// time budget.
func TimeBuckets(results []model.QuestionResult, allowedSeconds int) []QuestionTimeBucket {
	if len(results) == 0 || allowedSeconds <= 0 {
		return nil
	}
	budget := allowedSeconds / len(results)
	if budget == 0 {
		budget = 1
	}

	out := make([]QuestionTimeBucket, 0, len(results))
	for _, res := range results {
		bucket := BucketOK
		switch {
		case res.TimeSpentSeconds*2 <= budget:
			bucket = BucketFast
		case res.TimeSpentSeconds >= budget*2:
			bucket = BucketSlow
		}
		out = append(out, QuestionTimeBucket{
			QuestionID:       res.QuestionID,
			TimeSpentSeconds: res.TimeSpentSeconds,
			BudgetSeconds:    budget,
			Bucket:           bucket,
		})
	}
	return out
}
