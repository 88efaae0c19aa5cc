package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type archiveRef struct {
	TenantID  string
	PaymentID string
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestQueueDeliversTypedPayload(t *testing.T) {
	var mu sync.Mutex
	var seen []archiveRef

	q := NewQueue("test", func(ctx context.Context, job Job[archiveRef]) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, job.Payload)
		return nil
	}, QueueConfig{Workers: 1})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job[archiveRef]{ID: "j1", Payload: archiveRef{TenantID: "t1", PaymentID: "p1"}}))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	})
	mu.Lock()
	assert.Equal(t, archiveRef{TenantID: "t1", PaymentID: "p1"}, seen[0])
	mu.Unlock()
}

func TestQueueRetriesThenDrops(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	var dropped *Job[archiveRef]

	q := NewQueue("test", func(ctx context.Context, job Job[archiveRef]) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		return errors.New("disk full")
	}, QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: time.Millisecond})

	q.OnDrop(func(job Job[archiveRef], err error) {
		mu.Lock()
		defer mu.Unlock()
		dropped = &job
	})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job[archiveRef]{ID: "j1", Payload: archiveRef{PaymentID: "p1"}}))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return dropped != nil
	})
	mu.Lock()
	assert.Equal(t, "p1", dropped.Payload.PaymentID)
	// First delivery plus MaxRetries redeliveries.
	assert.Equal(t, 3, attempts)
	mu.Unlock()
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job[archiveRef]) error { return nil }, QueueConfig{})

	err := q.Enqueue(Job[archiveRef]{ID: "j1"})
	require.Error(t, err)
}
