package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-fees-api/internal/models"
)

func resolvedStudent(id, name string) *models.ResolvedStudent {
	return &models.ResolvedStudent{Student: models.Student{ID: id, FullName: name, AdmissionNo: "ADM-" + id}}
}

func TestQueueEnqueuePromotesFirstEntry(t *testing.T) {
	q := NewQueueService(nil, 0, nil, zap.NewNop())

	snapshot, err := q.Enqueue("till-1", resolvedStudent("a", "A"))
	require.NoError(t, err)
	require.NotNil(t, snapshot.Current)
	assert.Equal(t, "a", snapshot.Current.StudentID)

	// Later arrivals wait behind the one being processed.
	snapshot, err = q.Enqueue("till-1", resolvedStudent("b", "B"))
	require.NoError(t, err)
	assert.Equal(t, "a", snapshot.Current.StudentID)
	assert.Equal(t, models.QueueStatusWaiting, snapshot.Entries[1].Status)
}

func TestQueueFIFOOrder(t *testing.T) {
	q := NewQueueService(nil, 0, nil, zap.NewNop())

	for _, s := range []*models.ResolvedStudent{resolvedStudent("a", "A"), resolvedStudent("b", "B"), resolvedStudent("c", "C")} {
		_, err := q.Enqueue("till-1", s)
		require.NoError(t, err)
	}

	require.Equal(t, "a", q.Snapshot("till-1").Current.StudentID)

	second := q.Advance("till-1")
	require.NotNil(t, second)
	assert.Equal(t, "b", second.StudentID)

	third := q.Advance("till-1")
	require.NotNil(t, third)
	assert.Equal(t, "c", third.StudentID)

	assert.Nil(t, q.Advance("till-1"))
	assert.Nil(t, q.Snapshot("till-1").Current)
}

func TestQueueDuplicateScanRejected(t *testing.T) {
	q := NewQueueService(nil, 0, nil, zap.NewNop())

	_, err := q.Enqueue("till-1", resolvedStudent("a", "A"))
	require.NoError(t, err)

	_, err = q.Enqueue("till-1", resolvedStudent("a", "A"))
	require.Error(t, err)

	// The same student can wait on a different till.
	_, err = q.Enqueue("till-2", resolvedStudent("a", "A"))
	require.NoError(t, err)
}

func TestQueueRequeueAfterCompletion(t *testing.T) {
	q := NewQueueService(nil, 0, nil, zap.NewNop())

	_, err := q.Enqueue("till-1", resolvedStudent("a", "A"))
	require.NoError(t, err)
	require.NoError(t, q.Complete("till-1", "a"))

	_, err = q.Enqueue("till-1", resolvedStudent("a", "A"))
	require.NoError(t, err)

	snapshot := q.Snapshot("till-1")
	require.Len(t, snapshot.Entries, 1)
	assert.Equal(t, models.QueueStatusProcessing, snapshot.Entries[0].Status)
}

func TestQueueSelectRefreshesFeeSnapshot(t *testing.T) {
	fees := &mockLatestFeeRepo{fees: map[string]models.FeeRecord{
		"b": {ID: "f1", StudentID: "b", Balance: 42000},
	}}
	q := NewQueueService(fees, 0, nil, zap.NewNop())

	_, err := q.Enqueue("till-1", resolvedStudent("a", "A"))
	require.NoError(t, err)
	_, err = q.Enqueue("till-1", resolvedStudent("b", "B"))
	require.NoError(t, err)
	require.NoError(t, q.Complete("till-1", "a"))

	entry, err := q.Select(context.Background(), "t1", "till-1", "b")
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusProcessing, entry.Status)
	require.NotNil(t, entry.FeeRecordID)
	assert.Equal(t, "f1", *entry.FeeRecordID)
	assert.Equal(t, int64(42000), entry.Balance)
}

func TestQueueSelectWhileProcessingRejected(t *testing.T) {
	q := NewQueueService(nil, 0, nil, zap.NewNop())

	_, err := q.Enqueue("till-1", resolvedStudent("a", "A"))
	require.NoError(t, err)
	_, err = q.Enqueue("till-1", resolvedStudent("b", "B"))
	require.NoError(t, err)

	// "a" is processing after enqueue; "b" cannot be selected past it.
	_, err = q.Select(context.Background(), "t1", "till-1", "b")
	require.Error(t, err)

	require.NoError(t, q.Release("till-1"))
	_, err = q.Select(context.Background(), "t1", "till-1", "b")
	require.NoError(t, err)
}

func TestQueueReleaseReturnsToWaiting(t *testing.T) {
	q := NewQueueService(nil, 0, nil, zap.NewNop())

	_, err := q.Enqueue("till-1", resolvedStudent("a", "A"))
	require.NoError(t, err)

	require.NoError(t, q.Release("till-1"))

	snapshot := q.Snapshot("till-1")
	assert.Nil(t, snapshot.Current)
	assert.Equal(t, models.QueueStatusWaiting, snapshot.Entries[0].Status)
}

func TestQueueRemoveProcessingRejected(t *testing.T) {
	q := NewQueueService(nil, 0, nil, zap.NewNop())

	_, err := q.Enqueue("till-1", resolvedStudent("a", "A"))
	require.NoError(t, err)

	require.Error(t, q.Remove("till-1", "a"))
	require.NoError(t, q.Release("till-1"))
	require.NoError(t, q.Remove("till-1", "a"))

	// Absent ids are a no-op.
	require.NoError(t, q.Remove("till-1", "ghost"))
}

func TestQueueCompletedNeverRegresses(t *testing.T) {
	q := NewQueueService(nil, 0, nil, zap.NewNop())

	_, err := q.Enqueue("till-1", resolvedStudent("a", "A"))
	require.NoError(t, err)
	require.NoError(t, q.Complete("till-1", "a"))

	_, err = q.Select(context.Background(), "t1", "till-1", "a")
	require.Error(t, err)
	assert.Equal(t, models.QueueStatusCompleted, q.Snapshot("till-1").Entries[0].Status)
}

func TestQueueClearCompleted(t *testing.T) {
	q := NewQueueService(nil, 0, nil, zap.NewNop())

	_, err := q.Enqueue("till-1", resolvedStudent("a", "A"))
	require.NoError(t, err)
	_, err = q.Enqueue("till-1", resolvedStudent("b", "B"))
	require.NoError(t, err)
	require.NoError(t, q.Complete("till-1", "a"))

	removed := q.ClearCompleted("till-1")
	assert.Equal(t, 1, removed)

	snapshot := q.Snapshot("till-1")
	require.Len(t, snapshot.Entries, 1)
	assert.Equal(t, "b", snapshot.Entries[0].StudentID)
}

func TestQueueFull(t *testing.T) {
	q := NewQueueService(nil, 2, nil, zap.NewNop())

	_, err := q.Enqueue("till-1", resolvedStudent("a", "A"))
	require.NoError(t, err)
	_, err = q.Enqueue("till-1", resolvedStudent("b", "B"))
	require.NoError(t, err)

	_, err = q.Enqueue("till-1", resolvedStudent("c", "C"))
	require.Error(t, err)
}

func TestQueueSnapshotCopiesEntries(t *testing.T) {
	q := NewQueueService(nil, 0, nil, zap.NewNop())

	resolved := resolvedStudent("a", "A")
	resolved.FeeRecord = &models.FeeRecord{ID: "f1", Balance: 12500}
	_, err := q.Enqueue("till-1", resolved)
	require.NoError(t, err)

	snapshot := q.Snapshot("till-1")
	require.Len(t, snapshot.Entries, 1)
	assert.Equal(t, int64(12500), snapshot.Entries[0].Balance)

	snapshot.Entries[0].Status = models.QueueStatusCompleted
	again := q.Snapshot("till-1")
	assert.Equal(t, models.QueueStatusProcessing, again.Entries[0].Status)
}
