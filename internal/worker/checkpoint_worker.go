package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepgrid/testprep-backend/internal/config"
	"github.com/prepgrid/testprep-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CheckpointWorker consumes persist_checkpoints_queue and mirrors live
// session snapshots into the attempts table. A checkpoint is a full
// replacement of the answers/times columns, so replaying an old item
// after a newer one is the only ordering hazard; the queue is FIFO per
// attempt, which is enough.
type CheckpointWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewCheckpointWorker creates a new CheckpointWorker.
func NewCheckpointWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *CheckpointWorker {
	return &CheckpointWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "checkpoint_worker").Logger(),
	}
}

type checkpointPayload struct {
	AttemptID string                      `json:"attempt_id"`
	Answers   map[string]model.UserAnswer `json:"answers"`
	Times     map[string]int              `json:"times"`
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *CheckpointWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *CheckpointWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistCheckpointsQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var payload checkpointPayload
	if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.persistCheckpoint(ctx, &payload); err != nil {
		w.log.Error().Err(err).
			Str("attempt_id", payload.AttemptID).
			Msg("Persist error, retrying in 5s")
		// Push back to queue for retry.
		w.rdb.RPush(ctx, config.WorkerKey.PersistCheckpointsQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *CheckpointWorker) persistCheckpoint(ctx context.Context, p *checkpointPayload) error {
	attemptID, err := uuid.Parse(p.AttemptID)
	if err != nil {
		return err
	}

	answersJSON, err := json.Marshal(p.Answers)
	if err != nil {
		return err
	}
	timesJSON, err := json.Marshal(p.Times)
	if err != nil {
		return err
	}

	// The status guard keeps a late checkpoint from resurrecting answers
	// on an attempt the scoring worker already completed.
	_, err = w.pool.Exec(ctx,
		`UPDATE attempts
		 SET answers = $1, times = $2, updated_at = NOW()
		 WHERE id = $3 AND status = 'started'`,
		answersJSON, timesJSON, attemptID,
	)
	return err
}

// drain processes all remaining items in the queue before shutdown.
func (w *CheckpointWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistCheckpointsQueue).Result()
		if err != nil {
			break
		}

		var payload checkpointPayload
		if err := json.Unmarshal([]byte(result), &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.persistCheckpoint(ctx, &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistCheckpointsQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
