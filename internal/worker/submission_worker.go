package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduassess-backend/internal/config"
	"github.com/stemsi/eduassess-backend/internal/model"
)

const (
	SubmissionBatchSize    = 50
	SubmissionBatchTimeout = 2 * time.Second
	SubmissionPollTimeout  = 1 * time.Second
	shutdownFlushTimeout   = 10 * time.Second
)

// Archive is the SQL side of the record store.
type Archive interface {
	SaveSubmission(ctx context.Context, sub model.Submission) error
	SaveSubmissions(ctx context.Context, subs []model.Submission) error
}

// SubmissionWorker drains the Redis persist queue into the SQL archive.
// Items are moved to a processing list before they are written, so reads
// through the Redis store keep seeing them and a crash loses nothing.
type SubmissionWorker struct {
	archive Archive
	rdb     *redis.Client
	log     zerolog.Logger

	batchSize    int
	batchTimeout time.Duration
	pollTimeout  time.Duration
}

func NewSubmissionWorker(archive Archive, rdb *redis.Client, log zerolog.Logger) *SubmissionWorker {
	return &SubmissionWorker{
		archive:      archive,
		rdb:          rdb,
		log:          log.With().Str("component", "submission_worker").Logger(),
		batchSize:    SubmissionBatchSize,
		batchTimeout: SubmissionBatchTimeout,
		pollTimeout:  SubmissionPollTimeout,
	}
}

// queued is one raw queue item and its decoded submission.
type queued struct {
	raw string
	sub model.Submission
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *SubmissionWorker) Start(ctx context.Context) {
	w.log.Info().Msg("SubmissionWorker started")

	w.recover(ctx)

	batch := make([]queued, 0, w.batchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= w.batchSize || time.Since(lastFlush) >= w.batchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
			w.flushSafe(flushCtx, batch)
			cancel()
			return

		default:
			raw, err := w.rdb.BLMove(ctx,
				config.WorkerKey.PersistSubmissionsQueue,
				config.WorkerKey.PersistSubmissionsProcessing,
				"LEFT", "RIGHT", w.pollTimeout,
			).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLMove error")
					time.Sleep(w.pollTimeout)
				}
				continue
			}

			var sub model.Submission
			if err := json.Unmarshal([]byte(raw), &sub); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload, dropping")
				w.rdb.LRem(ctx, config.WorkerKey.PersistSubmissionsProcessing, 1, raw)
				continue
			}

			batch = append(batch, queued{raw: raw, sub: sub})
		}
	}
}

// recover puts back items a previous process left in the processing list.
func (w *SubmissionWorker) recover(ctx context.Context) {
	n := 0
	for {
		err := w.rdb.LMove(ctx,
			config.WorkerKey.PersistSubmissionsProcessing,
			config.WorkerKey.PersistSubmissionsQueue,
			"RIGHT", "LEFT",
		).Err()
		if err != nil {
			if err != redis.Nil {
				w.log.Error().Err(err).Msg("Recovering processing list failed")
			}
			break
		}
		n++
	}
	if n > 0 {
		w.log.Warn().Int("requeued", n).Msg("Requeued submissions from an interrupted batch")
	}
}

// ----------------------------------------------------------------
// Batch write wrapper
// ----------------------------------------------------------------

func (w *SubmissionWorker) flushSafe(ctx context.Context, batch []queued) {
	if len(batch) == 0 {
		return
	}

	subs := make([]model.Submission, len(batch))
	for i, q := range batch {
		subs[i] = q.sub
	}

	err := w.archive.SaveSubmissions(ctx, subs)
	if err == nil {
		w.ack(ctx, batch, nil)
		w.log.Debug().Int("count", len(batch)).Msg("Submissions archived")
		return
	}
	w.log.Warn().Err(err).Msg("bulk submission insert failed, using fallback")

	var failed []queued
	for _, q := range batch {
		if err := w.archive.SaveSubmission(ctx, q.sub); err != nil {
			w.log.Error().Err(err).Str("submission_id", q.sub.ID).Msg("SaveSubmission failed, requeueing")
			failed = append(failed, q)
		}
	}
	w.ack(ctx, batch, failed)
}

// ack drops batch from the processing list and pushes failed back onto the
// queue, in one transaction.
func (w *SubmissionWorker) ack(ctx context.Context, batch, failed []queued) {
	pipe := w.rdb.TxPipeline()
	for _, q := range batch {
		pipe.LRem(ctx, config.WorkerKey.PersistSubmissionsProcessing, 1, q.raw)
	}
	for _, q := range failed {
		pipe.RPush(ctx, config.WorkerKey.PersistSubmissionsQueue, q.raw)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Int("count", len(batch)).Msg("Acknowledging batch failed")
	}
}
