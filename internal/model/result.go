package model

// Strength is the coarse per-topic performance label.
type Strength string

const (
	StrengthWeak     Strength = "weak"
	StrengthModerate Strength = "moderate"
	StrengthStrong   Strength = "strong"
)

// QuestionResult is the graded outcome of a single question.
type QuestionResult struct {
	QuestionID       string        `json:"question_id"`
	IsCorrect        bool          `json:"is_correct"`
	MarksObtained    float64       `json:"marks_obtained"`
	UserAnswer       UserAnswer    `json:"user_answer"`
	CorrectAnswer    CorrectAnswer `json:"correct_answer"`
	TimeSpentSeconds int           `json:"time_spent_seconds"`
	Topics           []string      `json:"topics"`
}

// TopicStats aggregates outcomes across every question carrying a topic tag.
type TopicStats struct {
	Topic              string   `json:"topic"`
	TotalQuestions     int      `json:"total_questions"`
	AttemptedQuestions int      `json:"attempted_questions"`
	CorrectCount       int      `json:"correct_count"`
	IncorrectCount     int      `json:"incorrect_count"`
	UnattemptedCount   int      `json:"unattempted_count"`
	MarksObtained      float64  `json:"marks_obtained"`
	MaxMarks           float64  `json:"max_marks"`
	Accuracy           float64  `json:"accuracy"`
	TotalTimeSeconds   int      `json:"total_time_seconds"`
	AvgTimePerQuestion int      `json:"avg_time_per_question"`
	Strength           Strength `json:"strength"`
}

// ExamResult is the full graded outcome of a submitted attempt.
type ExamResult struct {
	PaperID                 string           `json:"paper_id"`
	PaperLabel              string           `json:"paper_label"`
	TotalScore              float64          `json:"total_score"`
	MaxScore                float64          `json:"max_score"`
	Percentage              float64          `json:"percentage"`
	TotalQuestions          int              `json:"total_questions"`
	AttemptedQuestions      int              `json:"attempted_questions"`
	CorrectCount            int              `json:"correct_count"`
	IncorrectCount          int              `json:"incorrect_count"`
	UnattemptedCount        int              `json:"unattempted_count"`
	Accuracy                float64          `json:"accuracy"`
	TotalTimeUsedSeconds    int              `json:"total_time_used_seconds"`
	TotalTimeAllowedSeconds int              `json:"total_time_allowed_seconds"`
	AvgTimePerQuestion      int              `json:"avg_time_per_question"`
	Proctor                 ProctorCounts    `json:"proctor"`
	TopicStats              []TopicStats     `json:"topic_stats"`
	QuestionResults         []QuestionResult `json:"question_results"`
}
