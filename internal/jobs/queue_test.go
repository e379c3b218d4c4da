package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_Enqueue_DeduplicatesSameKey(t *testing.T) {
	q := NewQueue(2, nil)

	jobA, createdA := q.Enqueue(EnqueueRequest{
		Source:    "manual",
		DedupeKey: "drafts/GEN.codex",
		Payload:   JobPayload{FilePath: "drafts/GEN.codex", FileKind: FileKindCodex},
	})
	jobB, createdB := q.Enqueue(EnqueueRequest{
		Source:    "cron",
		DedupeKey: "drafts/GEN.codex",
		Payload:   JobPayload{FilePath: "drafts/GEN.codex", FileKind: FileKindCodex},
	})

	require.True(t, createdA)
	require.False(t, createdB)
	require.NotNil(t, jobA)
	require.NotNil(t, jobB)
	assert.Equal(t, jobA.ID, jobB.ID)
}

func TestQueue_Enqueue_AllowsRetryAfterFailure(t *testing.T) {
	q := NewQueue(1, nil)

	var attempts int
	q.Start(func(_ context.Context, _ *IndexJob) error {
		attempts++
		if attempts == 1 {
			return assert.AnError
		}
		return nil
	})
	defer q.Stop()

	first, created := q.Enqueue(EnqueueRequest{
		Source:    "manual",
		DedupeKey: "retry-key",
	})
	require.True(t, created)
	require.NotNil(t, first)

	require.Eventually(t, func() bool {
		got, ok := q.Get(first.ID)
		return ok && got != nil && got.Status == StatusFailed
	}, time.Second, 10*time.Millisecond)

	second, created := q.Enqueue(EnqueueRequest{
		Source:    "manual",
		DedupeKey: "retry-key",
	})
	require.True(t, created)
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)

	require.Eventually(t, func() bool {
		got, ok := q.Get(second.ID)
		return ok && got != nil && got.Status == StatusSuccess
	}, time.Second, 10*time.Millisecond)
}

func TestQueue_Worker_TransitionsStatus(t *testing.T) {
	q := NewQueue(1, nil)
	q.Start(func(_ context.Context, _ *IndexJob) error { return nil })
	defer q.Stop()

	job, _ := q.Enqueue(EnqueueRequest{
		Source:    "manual",
		DedupeKey: "k1",
	})

	require.Eventually(t, func() bool {
		got, ok := q.Get(job.ID)
		if !ok || got == nil {
			return false
		}
		return got.Status == StatusSuccess
	}, time.Second, 10*time.Millisecond)
}

func TestQueue_PendingCount(t *testing.T) {
	q := NewQueue(1, nil)

	q.Enqueue(EnqueueRequest{Source: "manual", DedupeKey: "a"})
	q.Enqueue(EnqueueRequest{Source: "manual", DedupeKey: "b"})

	assert.Equal(t, 2, q.PendingCount())
}

type memoryStore struct {
	mu   sync.Mutex
	jobs map[string]*IndexJob
}

func newMemoryStore() *memoryStore {
	return &memoryStore{jobs: make(map[string]*IndexJob)}
}

func (s *memoryStore) LoadJobs(context.Context) ([]*IndexJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]*IndexJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		ret = append(ret, job)
	}
	return ret, nil
}

func (s *memoryStore) UpsertJob(_ context.Context, job *IndexJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tmp := *job
	s.jobs[job.ID] = &tmp
	return nil
}

func (s *memoryStore) DeleteJob(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
	return nil
}

func (s *memoryStore) get(id string) (*IndexJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	return job, ok
}

func TestQueue_HydratesFromStoreAndResetsRunning(t *testing.T) {
	store := newMemoryStore()
	store.jobs["job-7"] = &IndexJob{
		ID:        "job-7",
		Source:    "cron",
		DedupeKey: "drafts/GEN.codex",
		Status:    StatusRunning,
		Payload:   JobPayload{FilePath: "drafts/GEN.codex", FileKind: FileKindCodex},
	}

	q := NewQueue(1, store)

	got, ok := q.Get("job-7")
	require.True(t, ok)
	assert.Equal(t, StatusPending, got.Status, "running jobs restart as pending")

	// id counter continues past hydrated ids
	next, created := q.Enqueue(EnqueueRequest{Source: "manual", DedupeKey: "other"})
	require.True(t, created)
	assert.Equal(t, "job-8", next.ID)
}

func TestQueue_PersistsTransitions(t *testing.T) {
	store := newMemoryStore()
	q := NewQueue(1, store)
	q.Start(func(_ context.Context, _ *IndexJob) error { return nil })
	defer q.Stop()

	job, created := q.Enqueue(EnqueueRequest{Source: "manual", DedupeKey: "persist-key"})
	require.True(t, created)

	require.Eventually(t, func() bool {
		saved, ok := store.get(job.ID)
		return ok && saved.Status == StatusSuccess
	}, time.Second, 10*time.Millisecond)
}
