package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prepgrid/testprep-backend/internal/config"
	"github.com/prepgrid/testprep-backend/internal/logger"
	"github.com/prepgrid/testprep-backend/internal/model"
)

// Seeds the paper directory with a small sample paper so a fresh install
// has something to attempt.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := os.MkdirAll(cfg.PaperDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create paper directory")
	}

	paper := samplePaper()

	data, err := json.MarshalIndent(paper, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode paper")
	}

	path := filepath.Join(cfg.PaperDir, paper.PaperID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Fatal().Err(err).Msg("Failed to write paper file")
	}

	fmt.Printf("Wrote %s (%d questions, %d minutes)\n", path, paper.QuestionCount(), paper.DurationMinutes)
}

func samplePaper() *model.Paper {
	marks := model.MarksScheme{Correct: 4, Incorrect: -1, Unattempted: 0}
	// Numerical questions are graded without negative marking.
	natMarks := model.MarksScheme{Correct: 4, Incorrect: 0, Unattempted: 0}

	return &model.Paper{
		PaperID:         "sample-mock-2026",
		Label:           "Sample Mock Paper 2026",
		Year:            2026,
		Type:            model.PaperTypeMock,
		DurationMinutes: 30,
		TotalMarks:      24,
		Sections: []model.Section{
			{
				SectionID: "sec-physics",
				Title:     "Physics",
				Order:     1,
				Questions: []model.Question{
					{
						QuestionID: "phy-1",
						Type:       model.QuestionSingleChoice,
						Text:       "A body moving with constant speed along a circle has:",
						Options: []string{
							"Constant velocity",
							"Constant acceleration",
							"Changing velocity",
							"Zero acceleration",
						},
						Correct: model.CorrectAnswer{
							Type:        model.QuestionSingleChoice,
							OptionIndex: 2,
						},
						Marks:  marks,
						Topics: []string{"Kinematics"},
					},
					{
						QuestionID: "phy-2",
						Type:       model.QuestionMultiChoice,
						Text:       "Which of the following are vector quantities?",
						Options: []string{
							"Displacement",
							"Speed",
							"Momentum",
							"Work",
						},
						Correct: model.CorrectAnswer{
							Type:          model.QuestionMultiChoice,
							OptionIndices: []int{0, 2},
						},
						Marks:  marks,
						Topics: []string{"Kinematics", "Units and Measurement"},
					},
					{
						QuestionID: "phy-3",
						Type:       model.QuestionNumerical,
						Text:       "A stone dropped from rest falls for 2 s. Taking g = 9.8 m/s², how far does it fall (in metres)?",
						Correct: model.CorrectAnswer{
							Type: model.QuestionNumerical,
							AcceptedRanges: []model.AnswerRange{
								{Min: 19.5, Max: 19.7},
							},
						},
						Marks:  natMarks,
						Topics: []string{"Kinematics"},
					},
				},
			},
			{
				SectionID: "sec-maths",
				Title:     "Mathematics",
				Order:     2,
				Questions: []model.Question{
					{
						QuestionID: "mat-1",
						Type:       model.QuestionSingleChoice,
						Text:       "The derivative of sin(x) is:",
						Options: []string{
							"cos(x)",
							"-cos(x)",
							"sin(x)",
							"-sin(x)",
						},
						Correct: model.CorrectAnswer{
							Type:        model.QuestionSingleChoice,
							OptionIndex: 0,
						},
						Marks:  marks,
						Topics: []string{"Calculus"},
					},
					{
						QuestionID: "mat-2",
						Type:       model.QuestionNumerical,
						Text:       "Evaluate the definite integral of 2x from 0 to 3.",
						Correct: model.CorrectAnswer{
							Type: model.QuestionNumerical,
							AcceptedRanges: []model.AnswerRange{
								{Min: 9, Max: 9},
							},
						},
						Marks:  natMarks,
						Topics: []string{"Calculus"},
					},
					{
						QuestionID: "mat-3",
						Type:       model.QuestionSingleChoice,
						Text:       "If the roots of x² - 5x + 6 = 0 are p and q, then p + q equals:",
						Options: []string{
							"5",
							"6",
							"-5",
							"1",
						},
						Correct: model.CorrectAnswer{
							Type:        model.QuestionSingleChoice,
							OptionIndex: 0,
						},
						Marks:  marks,
						Topics: []string{"Algebra"},
					},
				},
			},
		},
	}
}
