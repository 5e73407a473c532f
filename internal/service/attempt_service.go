package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prepgrid/testprep-backend/internal/analytics"
	"github.com/prepgrid/testprep-backend/internal/config"
	"github.com/prepgrid/testprep-backend/internal/evaluation"
	"github.com/prepgrid/testprep-backend/internal/model"
	"github.com/prepgrid/testprep-backend/internal/paperstore"
	"github.com/prepgrid/testprep-backend/internal/repository"
	"github.com/prepgrid/testprep-backend/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Attempt lifecycle errors.
var (
	ErrAttemptNotLive     = errors.New("attempt has no live session")
	ErrAttemptNotOwned    = errors.New("attempt does not belong to this user")
	ErrAttemptSubmitted   = errors.New("attempt already submitted")
	ErrAttemptNotGraded   = errors.New("attempt has no graded summary yet")
	ErrAnswerTypeMismatch = errors.New("answer type does not match question type")
)

// checkpointPayload mirrors a live session's answers/times for async persistence.
type checkpointPayload struct {
	AttemptID string                      `json:"attempt_id"`
	Answers   map[string]model.UserAnswer `json:"answers"`
	Times     map[string]int              `json:"times"`
}

// resultPayload carries a final score + summary for async persistence.
type resultPayload struct {
	AttemptID string          `json:"attempt_id"`
	Score     float64         `json:"score"`
	Summary   json.RawMessage `json:"summary"`
	EndedAt   int64           `json:"ended_at"`
}

// proctorPayload is one focus/fullscreen event for async persistence.
type proctorPayload struct {
	AttemptID string `json:"attempt_id"`
	UserID    int    `json:"user_id"`
	Kind      string `json:"kind"`
	Timestamp int64  `json:"timestamp"`
}

// AttemptService drives attempt sessions and their persistence mirrors.
// The in-memory session is authoritative for a running attempt; PostgreSQL
// rows are best-effort checkpoints until submission, and every remote write
// goes through Redis queues so a slow or failing collaborator never blocks
// the state machine.
type AttemptService struct {
	attemptRepo *repository.AttemptRepository
	papers      *paperstore.Store
	registry    *session.Registry
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attemptRepo *repository.AttemptRepository,
	papers *paperstore.Store,
	registry *session.Registry,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attemptRepo: attemptRepo,
		papers:      papers,
		registry:    registry,
		rdb:         rdb,
		log:         log.With().Str("component", "attempt_service").Logger(),
	}
}

// CreateAttempt creates the persistent record and the live session for a
// paper. Any prior live session for the same attempt id is replaced whole.
func (s *AttemptService) CreateAttempt(ctx context.Context, userID int, paperID string) (*model.AttemptRecord, error) {
	paper, err := s.papers.Get(paperID)
	if err != nil {
		return nil, err
	}

	record := &model.AttemptRecord{UserID: userID, PaperID: paperID}
	if err := s.attemptRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	s.registry.Put(record.ID, session.New(paper, userID))

	s.log.Info().
		Str("attempt_id", record.ID.String()).
		Int("user_id", userID).
		Str("paper_id", paperID).
		Msg("Attempt created")

	return record, nil
}

// LiveSession returns the live session for an attempt after checking
// ownership.
func (s *AttemptService) LiveSession(attemptID uuid.UUID, userID int) (*session.AttemptSession, error) {
	sess, ok := s.registry.Get(attemptID)
	if !ok {
		return nil, ErrAttemptNotLive
	}
	if sess.UserID() != userID {
		return nil, ErrAttemptNotOwned
	}
	return sess, nil
}

// SetAnswer stores an answer on the live session. The variant must match
// the question's declared type; mismatches are rejected here so the state
// machine itself can stay contract-trusting.
func (s *AttemptService) SetAnswer(attemptID uuid.UUID, userID int, questionID string, answer model.UserAnswer) error {
	sess, err := s.LiveSession(attemptID, userID)
	if err != nil {
		return err
	}

	if !answer.IsNone() {
		var q *model.FlattenedQuestion
		questions := sess.Questions()
		for i := range questions {
			if questions[i].QuestionID == questionID {
				q = &questions[i]
				break
			}
		}
		if q == nil {
			return nil // Unknown question id: no-op, same as the state machine.
		}
		if !answer.Type.Matches(q.Type) {
			return ErrAnswerTypeMismatch
		}
	}

	sess.SetAnswer(questionID, answer)
	return nil
}

// Checkpoint pushes a session snapshot onto the persistence queue.
// Fire-and-forget: a Redis failure is logged and local state stays intact.
func (s *AttemptService) Checkpoint(ctx context.Context, attemptID uuid.UUID, sess *session.AttemptSession) {
	answers, times := sess.Snapshot()
	payload, err := json.Marshal(checkpointPayload{
		AttemptID: attemptID.String(),
		Answers:   answers,
		Times:     times,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Checkpoint marshal failed")
		return
	}

	pipe := s.rdb.Pipeline()
	// The answer cache lets a restarted server inspect the last known
	// snapshot; the scoring worker clears it on completion.
	pipe.Set(ctx, config.CacheKey.AttemptAnswersKey(attemptID.String()), payload, 12*time.Hour)
	pipe.RPush(ctx, config.WorkerKey.PersistCheckpointsQueue, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Checkpoint enqueue failed")
	}
}

// RunCheckpointLoop periodically mirrors every in-progress session to the
// persistence queue until ctx is cancelled. Call in a goroutine.
func (s *AttemptService) RunCheckpointLoop(ctx context.Context, interval time.Duration) {
	s.log.Info().Dur("interval", interval).Msg("Checkpoint loop started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Checkpoint loop stopped")
			return
		case <-ticker.C:
			s.registry.Range(func(attemptID uuid.UUID, sess *session.AttemptSession) {
				if sess.Status() == model.AttemptInProgress {
					s.Checkpoint(ctx, attemptID, sess)
				}
			})
		}
	}
}

// Submit freezes the live session and grades it. Exactly one caller wins
// the submission transition; the rest get ErrAttemptSubmitted.
func (s *AttemptService) Submit(ctx context.Context, attemptID uuid.UUID, userID int) (*model.ExamResult, error) {
	sess, err := s.LiveSession(attemptID, userID)
	if err != nil {
		return nil, err
	}

	if !sess.Submit() {
		return nil, ErrAttemptSubmitted
	}
	return s.finalize(ctx, attemptID, sess), nil
}

// FinalizeExpired grades a session that the timer already submitted
// (auto-submit on timeout). The caller must have observed the submission
// transition; this just runs the post-transition half.
func (s *AttemptService) FinalizeExpired(ctx context.Context, attemptID uuid.UUID, sess *session.AttemptSession) *model.ExamResult {
	return s.finalize(ctx, attemptID, sess)
}

// finalize evaluates a frozen session and queues the result for
// persistence. Evaluation is local and synchronous — the candidate gets
// their result even if every remote collaborator is down.
func (s *AttemptService) finalize(ctx context.Context, attemptID uuid.UUID, sess *session.AttemptSession) *model.ExamResult {
	result := evaluation.Evaluate(sess.Paper(), sess.Questions(), sess.FrozenStates())
	result.Proctor = sess.ProctorCounts()

	summary, err := json.Marshal(result)
	if err != nil {
		s.log.Error().Err(err).Msg("Result marshal failed")
		summary = nil
	}

	payload, _ := json.Marshal(resultPayload{
		AttemptID: attemptID.String(),
		Score:     result.TotalScore,
		Summary:   summary,
		EndedAt:   time.Now().Unix(),
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, payload).Err(); err != nil {
		s.log.Error().Err(err).Str("attempt_id", attemptID.String()).Msg("Result enqueue failed")
	}

	s.registry.Delete(attemptID)

	s.log.Info().
		Str("attempt_id", attemptID.String()).
		Float64("score", result.TotalScore).
		Int("correct", result.CorrectCount).
		Int("incorrect", result.IncorrectCount).
		Int("unattempted", result.UnattemptedCount).
		Msg("Attempt submitted and graded")

	return result
}

// RecordProctorEvent counts the event on the live session and queues it for
// persistence, unscored.
func (s *AttemptService) RecordProctorEvent(ctx context.Context, attemptID uuid.UUID, userID int, kind model.ProctorEventKind) error {
	sess, err := s.LiveSession(attemptID, userID)
	if err != nil {
		return err
	}

	sess.RecordProctorEvent(kind)

	payload, _ := json.Marshal(proctorPayload{
		AttemptID: attemptID.String(),
		UserID:    userID,
		Kind:      string(kind),
		Timestamp: time.Now().Unix(),
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistProctorQueue, payload).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Proctor enqueue failed")
	}
	return nil
}

// SaveProgress mirrors client-supplied answer/time mappings straight into
// the attempt record. Used by clients that keep their own local state.
func (s *AttemptService) SaveProgress(ctx context.Context, attemptID uuid.UUID, userID int, answers map[string]model.UserAnswer, times map[string]int) error {
	record, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return err
	}
	if record.UserID != userID {
		return ErrAttemptNotOwned
	}
	if record.Status != model.RecordStatusStarted {
		return ErrAttemptSubmitted
	}
	return s.attemptRepo.SaveProgress(ctx, attemptID, answers, times)
}

// ListAttempts returns a user's attempt history, newest first.
func (s *AttemptService) ListAttempts(ctx context.Context, userID int) ([]repository.AttemptSummary, error) {
	return s.attemptRepo.ListByUser(ctx, userID)
}

// GetAttempt returns a full attempt record after checking ownership.
func (s *AttemptService) GetAttempt(ctx context.Context, attemptID uuid.UUID, userID int) (*model.AttemptRecord, error) {
	record, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if record.UserID != userID {
		return nil, ErrAttemptNotOwned
	}
	return record, nil
}

// TrendPoint is one completed attempt on the score trend chart.
type TrendPoint struct {
	AttemptID uuid.UUID `json:"attempt_id"`
	PaperID   string    `json:"paper_id"`
	StartedAt time.Time `json:"started_at"`
	Score     float64   `json:"score"`
	Trend     float64   `json:"trend"`
}

// ScoreTrend returns completed attempts in chronological order with a
// moving-average trend line.
func (s *AttemptService) ScoreTrend(ctx context.Context, userID int, paperID string) ([]TrendPoint, error) {
	summaries, err := s.attemptRepo.ListCompletedScores(ctx, userID, paperID)
	if err != nil {
		return nil, fmt.Errorf("list completed scores: %w", err)
	}

	scores := make([]float64, len(summaries))
	for i, sum := range summaries {
		scores[i] = *sum.FinalScore
	}
	trend := analytics.ScoreTrend(scores, analytics.TrendWindow)

	points := make([]TrendPoint, len(summaries))
	for i, sum := range summaries {
		points[i] = TrendPoint{
			AttemptID: sum.ID,
			PaperID:   sum.PaperID,
			StartedAt: sum.StartedAt,
			Score:     scores[i],
			Trend:     trend[i],
		}
	}
	return points, nil
}

// ReviewRow is one question of the post-exam review, answers rendered as
// display text.
type ReviewRow struct {
	QuestionID    string               `json:"question_id"`
	Section       string               `json:"section"`
	Question      string               `json:"question"`
	YourAnswer    string               `json:"your_answer"`
	CorrectAnswer string               `json:"correct_answer"`
	IsCorrect     bool                 `json:"is_correct"`
	Marks         float64              `json:"marks"`
	TimeSpent     string               `json:"time_spent"`
	Pacing        analytics.TimeBucket `json:"pacing"`
}

// AttemptReview is the rendered review of a completed attempt.
type AttemptReview struct {
	AttemptID  uuid.UUID   `json:"attempt_id"`
	PaperID    string      `json:"paper_id"`
	PaperLabel string      `json:"paper_label"`
	Score      float64     `json:"score"`
	MaxScore   float64     `json:"max_score"`
	Percentage float64     `json:"percentage"`
	TimeUsed   string      `json:"time_used"`
	Rows       []ReviewRow `json:"rows"`
}

// Review renders a completed attempt's stored summary for question-by-
// question display: letter-formatted answers, per-question clock, and a
// pacing label against the paper's even time split.
func (s *AttemptService) Review(ctx context.Context, attemptID uuid.UUID, userID int) (*AttemptReview, error) {
	record, err := s.GetAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if record.Status != model.RecordStatusCompleted || len(record.Summary) == 0 {
		return nil, ErrAttemptNotGraded
	}

	var result model.ExamResult
	if err := json.Unmarshal(record.Summary, &result); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}

	// Question text and section titles live in the paper, not the summary.
	texts := make(map[string]model.FlattenedQuestion)
	if paper, err := s.papers.Get(record.PaperID); err == nil {
		for _, fq := range model.FlattenPaper(paper) {
			texts[fq.QuestionID] = fq
		}
	}

	pacing := make(map[string]analytics.TimeBucket)
	for _, tb := range analytics.TimeBuckets(result.QuestionResults, result.TotalTimeAllowedSeconds) {
		pacing[tb.QuestionID] = tb.Bucket
	}

	rows := make([]ReviewRow, 0, len(result.QuestionResults))
	for _, qr := range result.QuestionResults {
		fq := texts[qr.QuestionID]
		rows = append(rows, ReviewRow{
			QuestionID:    qr.QuestionID,
			Section:       fq.SectionTitle,
			Question:      fq.Text,
			YourAnswer:    analytics.FormatUserAnswer(qr.UserAnswer),
			CorrectAnswer: analytics.FormatCorrectAnswer(qr.CorrectAnswer),
			IsCorrect:     qr.IsCorrect,
			Marks:         qr.MarksObtained,
			TimeSpent:     analytics.FormatClock(qr.TimeSpentSeconds, true),
			Pacing:        pacing[qr.QuestionID],
		})
	}

	return &AttemptReview{
		AttemptID:  record.ID,
		PaperID:    result.PaperID,
		PaperLabel: result.PaperLabel,
		Score:      result.TotalScore,
		MaxScore:   result.MaxScore,
		Percentage: result.Percentage,
		TimeUsed:   analytics.FormatClock(result.TotalTimeUsedSeconds, true),
		Rows:       rows,
	}, nil
}
