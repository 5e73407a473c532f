package model

// PaperType distinguishes previous-year papers from mock papers.
type PaperType string

const (
	PaperTypePYQ  PaperType = "PYQ"
	PaperTypeMock PaperType = "Mock"
)

// QuestionType enumerates the supported question formats.
type QuestionType string

const (
	QuestionSingleChoice QuestionType = "mcq_single"
	QuestionMultiChoice  QuestionType = "mcq_multi"
	QuestionNumerical    QuestionType = "nat"
)

// AnswerRange is an inclusive [Min, Max] window for numerical answers.
// Min == Max expresses an exact-match expectation.
type AnswerRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// CorrectAnswer is a tagged variant keyed by Type. Only the fields matching
// the tag are meaningful; the rest stay at their zero value.
type CorrectAnswer struct {
	Type           QuestionType  `json:"type"`
	OptionIndex    int           `json:"correct_option_index,omitempty"`
	OptionIndices  []int         `json:"correct_option_indices,omitempty"`
	AcceptedRanges []AnswerRange `json:"accepted_ranges,omitempty"`
}

// MarksScheme is the per-question marking triple. Incorrect is typically <= 0.
type MarksScheme struct {
	Correct     float64 `json:"marks_correct"`
	Incorrect   float64 `json:"marks_incorrect"`
	Unattempted float64 `json:"marks_unattempted"`
}

// Question represents a single paper question. Papers are supplied as
// trusted, pre-validated documents: QuestionID uniqueness and the
// Correct.Type == Type invariant are preconditions, not re-checked here.
type Question struct {
	QuestionID string        `json:"question_id"`
	Type       QuestionType  `json:"type"`
	Text       string        `json:"question_text"`
	Image      string        `json:"image,omitempty"`
	Options    []string      `json:"options"`
	Correct    CorrectAnswer `json:"correct_answer"`
	Marks      MarksScheme   `json:"marks_scheme"`
	Topics     []string      `json:"topics"`
}

// Section groups questions within a paper.
type Section struct {
	SectionID string     `json:"section_id"`
	Title     string     `json:"title"`
	Order     int        `json:"order"`
	Questions []Question `json:"questions"`
}

// Paper is an immutable exam document.
type Paper struct {
	PaperID         string    `json:"paper_id"`
	Label           string    `json:"label"`
	Year            int       `json:"year"`
	Type            PaperType `json:"type"`
	DurationMinutes int       `json:"duration_minutes"`
	TotalMarks      float64   `json:"total_marks"`
	Sections        []Section `json:"sections"`
}

// FlattenedQuestion is a read-only projection of a question plus its owning
// section and its zero-based position in exam-wide navigation order.
type FlattenedQuestion struct {
	Question
	SectionID    string `json:"section_id"`
	SectionTitle string `json:"section_title"`
	GlobalIndex  int    `json:"global_index"`
}

// FlattenPaper produces the navigation-order question list: section order
// first, in-section order second. Produced once at load time.
func FlattenPaper(p *Paper) []FlattenedQuestion {
	var flat []FlattenedQuestion
	idx := 0
	for _, sec := range p.Sections {
		for _, q := range sec.Questions {
			flat = append(flat, FlattenedQuestion{
				Question:     q,
				SectionID:    sec.SectionID,
				SectionTitle: sec.Title,
				GlobalIndex:  idx,
			})
			idx++
		}
	}
	return flat
}

// QuestionCount returns the total number of questions across all sections.
func (p *Paper) QuestionCount() int {
	n := 0
	for _, sec := range p.Sections {
		n += len(sec.Questions)
	}
	return n
}

// PaperInfo is the catalog entry shown before an attempt is created.
type PaperInfo struct {
	PaperID         string    `json:"paper_id"`
	Label           string    `json:"label"`
	Year            int       `json:"year"`
	Type            PaperType `json:"type"`
	DurationMinutes int       `json:"duration_minutes"`
	TotalQuestions  int       `json:"total_questions"`
	TotalMarks      float64   `json:"total_marks"`
}

// Info builds the catalog projection of a paper.
func (p *Paper) Info() PaperInfo {
	return PaperInfo{
		PaperID:         p.PaperID,
		Label:           p.Label,
		Year:            p.Year,
		Type:            p.Type,
		DurationMinutes: p.DurationMinutes,
		TotalQuestions:  p.QuestionCount(),
		TotalMarks:      p.TotalMarks,
	}
}

// StudentQuestion is a question with the correct answer and marking scheme
// stripped, safe to send to a candidate mid-attempt.
type StudentQuestion struct {
	QuestionID   string       `json:"question_id"`
	Type         QuestionType `json:"type"`
	Text         string       `json:"question_text"`
	Image        string       `json:"image,omitempty"`
	Options      []string     `json:"options"`
	Topics       []string     `json:"topics"`
	SectionID    string       `json:"section_id"`
	SectionTitle string       `json:"section_title"`
	GlobalIndex  int          `json:"global_index"`
}

// StudentPaper is the answer-free paper payload served to candidates.
type StudentPaper struct {
	PaperID         string            `json:"paper_id"`
	Label           string            `json:"label"`
	Year            int               `json:"year"`
	Type            PaperType         `json:"type"`
	DurationMinutes int               `json:"duration_minutes"`
	TotalMarks      float64           `json:"total_marks"`
	Questions       []StudentQuestion `json:"questions"`
}

// NewStudentPaper strips answers and marks from a paper for delivery.
func NewStudentPaper(p *Paper) *StudentPaper {
	flat := FlattenPaper(p)
	questions := make([]StudentQuestion, 0, len(flat))
	for _, q := range flat {
		questions = append(questions, StudentQuestion{
			QuestionID:   q.QuestionID,
			Type:         q.Type,
			Text:         q.Text,
			Image:        q.Image,
			Options:      q.Options,
			Topics:       q.Topics,
			SectionID:    q.SectionID,
			SectionTitle: q.SectionTitle,
			GlobalIndex:  q.GlobalIndex,
		})
	}
	return &StudentPaper{
		PaperID:         p.PaperID,
		Label:           p.Label,
		Year:            p.Year,
		Type:            p.Type,
		DurationMinutes: p.DurationMinutes,
		TotalMarks:      p.TotalMarks,
		Questions:       questions,
	}
}
