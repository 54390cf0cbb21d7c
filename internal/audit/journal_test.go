package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type recordingStorage struct {
	mu      sync.Mutex
	batches [][]DenialEvent
	err     error
}

func (r *recordingStorage) WriteBatch(_ context.Context, events []DenialEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]DenialEvent(nil), events...))
	return r.err
}

func (r *recordingStorage) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.batches {
		n += len(b)
	}
	return n
}

func TestJournalFlushesOnStop(t *testing.T) {
	st := &recordingStorage{}
	j := NewJournal(st, Options{BufferSize: 100, BatchSize: 10, FlushInterval: time.Hour}, zap.NewNop())
	j.Start()

	for i := 0; i < 25; i++ {
		j.Log(DenialEvent{ActorID: "a", TargetKey: "furnace"})
	}
	j.Stop()

	assert.Equal(t, 25, st.total())
	assert.GreaterOrEqual(t, len(st.batches), 3)
	for _, b := range st.batches {
		for _, e := range b {
			assert.False(t, e.Timestamp.IsZero())
		}
	}

	// после Stop события отбрасываются, повторный Stop безопасен
	j.Log(DenialEvent{ActorID: "late"})
	j.Stop()
	assert.Equal(t, 25, st.total())
}

func TestJournalFlushesByTimer(t *testing.T) {
	st := &recordingStorage{}
	j := NewJournal(st, Options{BufferSize: 10, BatchSize: 100, FlushInterval: 10 * time.Millisecond}, zap.NewNop())
	j.Start()
	defer j.Stop()

	j.Log(DenialEvent{ActorID: "a"})
	assert.Eventually(t, func() bool { return st.total() == 1 }, time.Second, 5*time.Millisecond)
}

func TestJournalSurvivesStorageErrors(t *testing.T) {
	st := &recordingStorage{err: errors.New("connection refused")}
	j := NewJournal(st, Options{BatchSize: 1, FlushInterval: time.Hour}, zap.NewNop())
	j.Start()
	j.Log(DenialEvent{ActorID: "a"})
	j.Log(DenialEvent{ActorID: "b"})
	j.Stop()
	assert.Equal(t, 2, st.total())
}
