package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduassess-backend/internal/config"
	"github.com/stemsi/eduassess-backend/internal/model"
)

// ExamListTTL bounds how long the cached exam list may be served.
const ExamListTTL = 5 * time.Minute

// RedisStore fronts a SQL-backed RecordStore with Redis.
//
//   - the exam list is cached under config.CacheKey.ExamListKey()
//   - the duplicate guard reads the per-exam submitted-ID set first
//   - SaveSubmission enqueues onto config.WorkerKey.PersistSubmissionsQueue;
//     worker.SubmissionWorker moves items to the processing list and
//     batch-writes them into the base store
type RedisStore struct {
	base RecordStore
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewRedisStore wraps base with the Redis cache and submission queue.
func NewRedisStore(base RecordStore, rdb *redis.Client, log zerolog.Logger) *RedisStore {
	return &RedisStore{
		base: base,
		rdb:  rdb,
		log:  log.With().Str("component", "redis_store").Logger(),
	}
}

func (s *RedisStore) GetExams(ctx context.Context) ([]model.Exam, error) {
	key := config.CacheKey.ExamListKey()

	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var exams []model.Exam
		if err := json.Unmarshal(data, &exams); err == nil {
			return exams, nil
		}
		s.log.Warn().Msg("Corrupt exam list cache, reloading")
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Exam list cache read failed")
	}

	exams, err := s.base.GetExams(ctx)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(exams); err == nil {
		if err := s.rdb.Set(ctx, key, raw, ExamListTTL).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Exam list cache write failed")
		}
	}
	return exams, nil
}

// GetSubmissions returns archived submissions followed by those the archive
// worker has not written yet, in the batch it is writing or still queued.
//
// Both lists are read in one MULTI before the base store. The worker only
// removes an item from the processing list after writing it to the base,
// so every submission is in at least one of the two reads.
func (s *RedisStore) GetSubmissions(ctx context.Context) ([]model.Submission, error) {
	var pending []string
	pipe := s.rdb.TxPipeline()
	processing := pipe.LRange(ctx, config.WorkerKey.PersistSubmissionsProcessing, 0, -1)
	queued := pipe.LRange(ctx, config.WorkerKey.PersistSubmissionsQueue, 0, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Persist queue read failed")
	} else {
		pending = append(processing.Val(), queued.Val()...)
	}

	subs, err := s.base.GetSubmissions(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(subs))
	for _, sub := range subs {
		seen[sub.ID] = struct{}{}
	}
	for _, raw := range pending {
		var sub model.Submission
		if err := json.Unmarshal([]byte(raw), &sub); err != nil {
			continue
		}
		if _, ok := seen[sub.ID]; ok {
			continue
		}
		seen[sub.ID] = struct{}{}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (s *RedisStore) IsIDUsedForExam(ctx context.Context, studentID, examID string) (bool, error) {
	used, err := s.rdb.SIsMember(ctx, config.CacheKey.ExamSubmittedIDsKey(examID), studentID).Result()
	if err == nil && used {
		return true, nil
	}
	if err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID).Msg("Submitted-ID set read failed, falling back")
	}
	return s.base.IsIDUsedForExam(ctx, studentID, examID)
}

// SaveSubmission marks the student as submitted and queues the record for
// the archive worker.
func (s *RedisStore) SaveSubmission(ctx context.Context, sub model.Submission) error {
	raw, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.SAdd(ctx, config.CacheKey.ExamSubmittedIDsKey(sub.ExamID), sub.StudentID)
	pipe.RPush(ctx, config.WorkerKey.PersistSubmissionsQueue, raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue submission: %w", err)
	}
	return nil
}

func (s *RedisStore) GetTeacher(ctx context.Context) (*model.Teacher, error) {
	return s.base.GetTeacher(ctx)
}

// SaveExam writes through to the base store and drops the list cache.
func (s *RedisStore) SaveExam(ctx context.Context, exam model.Exam) error {
	if err := s.base.SaveExam(ctx, exam); err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, config.CacheKey.ExamListKey()).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Exam list cache invalidation failed")
	}
	return nil
}

func (s *RedisStore) SaveTeacher(ctx context.Context, teacher model.Teacher) error {
	return s.base.SaveTeacher(ctx, teacher)
}
