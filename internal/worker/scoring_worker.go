package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepgrid/testprep-backend/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ScoreBatchSize    = 50
	ScoreBatchTimeout = 2 * time.Second
	ScorePollTimeout  = 1 * time.Second
)

// ScoringWorker consumes persist_results_queue and completes attempt rows
// with their final score and result summary. Grading already happened in
// the server; this worker only persists.
type ScoringWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewScoringWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ScoringWorker {
	return &ScoringWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "scoring_worker").Logger(),
	}
}

type resultPayload struct {
	AttemptID string          `json:"attempt_id"`
	Score     float64         `json:"score"`
	Summary   json.RawMessage `json:"summary"`
	EndedAt   int64           `json:"ended_at"`
}

func (w *ScoringWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ScoringWorker started")

	batch := make([]*resultPayload, 0, ScoreBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ScoreBatchSize || time.Since(lastFlush) >= ScoreBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ScorePollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p resultPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

// flushSafe attempts the bulk update, then falls back to row-by-row, then
// requeues whatever still fails.
func (w *ScoringWorker) flushSafe(ctx context.Context, batch []*resultPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkComplete(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk completion failed, using fallback")

		for _, p := range batch {
			if err := w.completeSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Str("attempt_id", p.AttemptID).Msg("Single completion failed, requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
			}
		}
		return
	}

	// Completed attempts no longer need their answer cache.
	w.bulkClearAnswerCache(ctx, batch)
}

// bulkComplete updates a whole batch with one UNNEST round trip.
func (w *ScoringWorker) bulkComplete(ctx context.Context, batch []*resultPayload) error {
	n := len(batch)

	ids := make([]uuid.UUID, 0, n)
	scores := make([]float64, 0, n)
	summaries := make([][]byte, 0, n)
	endedAts := make([]time.Time, 0, n)

	for _, p := range batch {
		id, err := uuid.Parse(p.AttemptID)
		if err != nil {
			return err
		}
		ids = append(ids, id)
		scores = append(scores, p.Score)
		summaries = append(summaries, p.Summary)
		endedAts = append(endedAts, time.Unix(p.EndedAt, 0))
	}

	query := `
		UPDATE attempts AS a
		SET status = 'completed',
		    final_score = t.score,
		    summary = t.summary,
		    ended_at = t.ended_at,
		    updated_at = NOW()
		FROM (
			SELECT
				u.id,
				u.score,
				u.summary,
				u.ended_at
			FROM UNNEST(
				$1::uuid[],
				$2::float8[],
				$3::jsonb[],
				$4::timestamptz[]
			) AS u (id, score, summary, ended_at)
		) AS t
		WHERE a.id = t.id
	`

	_, err := w.pool.Exec(ctx, query, ids, scores, summaries, endedAts)
	return err
}

func (w *ScoringWorker) bulkClearAnswerCache(ctx context.Context, batch []*resultPayload) {
	pipe := w.rdb.Pipeline()

	for _, p := range batch {
		pipe.Del(ctx, config.CacheKey.AttemptAnswersKey(p.AttemptID))
	}

	_, _ = pipe.Exec(ctx)
}

func (w *ScoringWorker) completeSingle(ctx context.Context, p *resultPayload) error {
	id, err := uuid.Parse(p.AttemptID)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = 'completed',
		     final_score = $1,
		     summary = $2,
		     ended_at = $3,
		     updated_at = NOW()
		 WHERE id = $4`,
		p.Score, p.Summary, time.Unix(p.EndedAt, 0), id,
	)
	return err
}
