package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduassess-backend/internal/config"
	"github.com/stemsi/eduassess-backend/internal/model"
	"github.com/stemsi/eduassess-backend/internal/repository"
)

var discard = zerolog.New(io.Discard)

func newTestWorker(t *testing.T, archive Archive) (*SubmissionWorker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	w := NewSubmissionWorker(archive, rdb, discard)
	w.batchSize = 2
	w.batchTimeout = 50 * time.Millisecond
	return w, mr
}

func enqueue(t *testing.T, mr *miniredis.Miniredis, key string, ids ...string) {
	t.Helper()
	for _, id := range ids {
		raw, _ := json.Marshal(model.Submission{
			ID: id, ExamID: "E1", StudentName: "N", StudentID: "S-" + id,
			Answers: []int{0}, Score: 1, TotalPoints: 1, Timestamp: time.Now().UTC(),
		})
		mr.RPush(key, string(raw))
	}
}

// runUntil runs the worker until cond holds, then stops it and waits.
func runUntil(t *testing.T, w *SubmissionWorker, cond func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			cancel()
			<-done
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	<-done
}

func archivedIDs(t *testing.T, store *repository.MemoryStore) map[string]bool {
	t.Helper()
	subs, err := store.GetSubmissions(context.Background())
	if err != nil {
		t.Fatalf("GetSubmissions: %v", err)
	}
	ids := make(map[string]bool, len(subs))
	for _, s := range subs {
		ids[s.ID] = true
	}
	return ids
}

func TestSubmissionWorkerDrainsQueue(t *testing.T) {
	store := repository.NewMemoryStore()
	w, mr := newTestWorker(t, store)

	enqueue(t, mr, config.WorkerKey.PersistSubmissionsQueue, "a", "b", "c")

	runUntil(t, w, func() bool { return len(archivedIDs(t, store)) == 3 })

	if mr.Exists(config.WorkerKey.PersistSubmissionsQueue) {
		t.Error("queue not drained")
	}
	if mr.Exists(config.WorkerKey.PersistSubmissionsProcessing) {
		t.Error("processing list not acknowledged")
	}
}

func TestSubmissionWorkerRecoversInterruptedBatch(t *testing.T) {
	store := repository.NewMemoryStore()
	w, mr := newTestWorker(t, store)

	enqueue(t, mr, config.WorkerKey.PersistSubmissionsProcessing, "left-behind")
	enqueue(t, mr, config.WorkerKey.PersistSubmissionsQueue, "fresh")

	runUntil(t, w, func() bool {
		ids := archivedIDs(t, store)
		return ids["left-behind"] && ids["fresh"]
	})
}

func TestSubmissionWorkerDropsPoisonPayload(t *testing.T) {
	store := repository.NewMemoryStore()
	w, mr := newTestWorker(t, store)

	mr.RPush(config.WorkerKey.PersistSubmissionsQueue, "{not json")
	enqueue(t, mr, config.WorkerKey.PersistSubmissionsQueue, "ok")

	runUntil(t, w, func() bool { return archivedIDs(t, store)["ok"] })

	if mr.Exists(config.WorkerKey.PersistSubmissionsProcessing) {
		t.Error("poison payload left in processing list")
	}
}

// flakyArchive fails every batch and the single write of one ID.
type flakyArchive struct {
	mu      sync.Mutex
	saved   []string
	poison  string
	batches atomic.Int32
}

func (f *flakyArchive) SaveSubmissions(context.Context, []model.Submission) error {
	f.batches.Add(1)
	return errors.New("bulk insert unavailable")
}

func (f *flakyArchive) SaveSubmission(_ context.Context, sub model.Submission) error {
	if sub.ID == f.poison {
		return errors.New("constraint violation")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, sub.ID)
	return nil
}

func (f *flakyArchive) savedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func TestSubmissionWorkerFallsBackAndRequeues(t *testing.T) {
	archive := &flakyArchive{poison: "bad"}
	w, mr := newTestWorker(t, archive)

	enqueue(t, mr, config.WorkerKey.PersistSubmissionsQueue, "good", "bad")

	runUntil(t, w, func() bool { return archive.savedCount() >= 1 && archive.batches.Load() >= 1 })

	if archive.saved[0] != "good" {
		t.Fatalf("saved = %v", archive.saved)
	}
	// the failing item keeps cycling through the queue until it can be written
	queued, _ := mr.List(config.WorkerKey.PersistSubmissionsQueue)
	processing, _ := mr.List(config.WorkerKey.PersistSubmissionsProcessing)
	if len(queued)+len(processing) != 1 {
		t.Fatalf("queue=%d processing=%d, want the failed item kept", len(queued), len(processing))
	}
}

type countingEvicter struct {
	calls     atomic.Int32
	retention atomic.Int64
}

func (c *countingEvicter) EvictFinished(retention time.Duration) int {
	c.calls.Add(1)
	c.retention.Store(int64(retention))
	return 1
}

func TestReaperWorker(t *testing.T) {
	ev := &countingEvicter{}
	w := NewReaperWorker(ev, 30*time.Minute, discard)
	w.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for ev.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if ev.calls.Load() < 2 {
		t.Fatalf("EvictFinished called %d times", ev.calls.Load())
	}
	if time.Duration(ev.retention.Load()) != 30*time.Minute {
		t.Fatalf("retention = %v", time.Duration(ev.retention.Load()))
	}
}
