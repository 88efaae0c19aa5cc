package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-fees-api/internal/models"
	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
)

// tillQueue is the in-memory FIFO for a single cashier till. Entries are
// never persisted; a till that restarts starts empty.
type tillQueue struct {
	entries []*models.QueueEntry
}

func (q *tillQueue) find(studentID string) *models.QueueEntry {
	for _, entry := range q.entries {
		if entry.StudentID == studentID {
			return entry
		}
	}
	return nil
}

func (q *tillQueue) processing() *models.QueueEntry {
	for _, entry := range q.entries {
		if entry.Status == models.QueueStatusProcessing {
			return entry
		}
	}
	return nil
}

func (q *tillQueue) firstWaiting() *models.QueueEntry {
	for _, entry := range q.entries {
		if entry.Status == models.QueueStatusWaiting {
			return entry
		}
	}
	return nil
}

func (q *tillQueue) activeCount() int {
	n := 0
	for _, entry := range q.entries {
		if entry.Status != models.QueueStatusCompleted {
			n++
		}
	}
	return n
}

// QueueService keeps a per-till payment queue. Scanned students wait in
// arrival order; at most one entry per till is processing at a time and
// promotion is strictly FIFO by enqueue order.
type QueueService struct {
	mu         sync.Mutex
	tills      map[string]*tillQueue
	fees       latestFeeRepository
	maxPerTill int
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
}

// NewQueueService constructs the queue service. The fee repository is used to
// refresh balances on Select and may be nil in tests.
func NewQueueService(fees latestFeeRepository, maxPerTill int, metrics *MetricsService, logger *zap.Logger) *QueueService {
	if maxPerTill <= 0 {
		maxPerTill = 200
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueService{
		tills:      make(map[string]*tillQueue),
		fees:       fees,
		maxPerTill: maxPerTill,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *QueueService) till(tillID string) *tillQueue {
	q, ok := s.tills[tillID]
	if !ok {
		q = &tillQueue{}
		s.tills[tillID] = q
	}
	return q
}

func (s *QueueService) publishDepth(tillID string, q *tillQueue) {
	if s.metrics != nil {
		s.metrics.SetQueueDepth(tillID, q.activeCount())
	}
}

// Enqueue appends a resolved student to the till's queue. A student already
// waiting or processing on the till cannot be queued twice; re-queueing after
// completion is allowed and drops the stale completed entry. When nothing is
// processing the front waiting entry is promoted immediately.
func (s *QueueService) Enqueue(tillID string, resolved *models.ResolvedStudent) (*models.QueueSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.till(tillID)
	if existing := q.find(resolved.Student.ID); existing != nil {
		if existing.Status != models.QueueStatusCompleted {
			return nil, appErrors.Clone(appErrors.ErrAlreadyQueued, "student already queued on this till")
		}
		s.removeLocked(q, resolved.Student.ID)
	}
	if q.activeCount() >= s.maxPerTill {
		return nil, appErrors.Clone(appErrors.ErrQueueFull, "till queue is full")
	}

	entry := &models.QueueEntry{
		StudentID:   resolved.Student.ID,
		AdmissionNo: resolved.Student.AdmissionNo,
		FullName:    resolved.Student.FullName,
		ClassName:   resolved.Student.ClassName,
		Status:      models.QueueStatusWaiting,
		EnqueuedAt:  s.now().UTC(),
	}
	if resolved.FeeRecord != nil {
		id := resolved.FeeRecord.ID
		entry.FeeRecordID = &id
		entry.Balance = resolved.FeeRecord.Balance
	}
	q.entries = append(q.entries, entry)

	if q.processing() == nil {
		if next := q.firstWaiting(); next != nil {
			next.Status = models.QueueStatusProcessing
		}
	}

	s.publishDepth(tillID, q)
	return s.snapshotLocked(tillID, q), nil
}

// Select promotes the named waiting entry to processing and refreshes its fee
// snapshot, since the balance may have changed since enqueue. Only one entry
// per till may be processing; callers must Advance or Release first.
func (s *QueueService) Select(ctx context.Context, tenantID, tillID, studentID string) (*models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.till(tillID)
	entry := q.find(studentID)
	if entry == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student is not queued on this till")
	}
	if entry.Status != models.QueueStatusWaiting {
		return nil, appErrors.Clone(appErrors.ErrConflict, "entry is not waiting")
	}
	if current := q.processing(); current != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "another student is already being processed")
	}

	if s.fees != nil {
		fee, err := s.fees.LatestByStudent(ctx, tenantID, studentID)
		switch {
		case err == nil:
			id := fee.ID
			entry.FeeRecordID = &id
			entry.Balance = fee.Balance
		case errors.Is(err, sql.ErrNoRows):
			entry.FeeRecordID = nil
			entry.Balance = 0
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to refresh fee record")
		}
	}

	entry.Status = models.QueueStatusProcessing
	copied := *entry
	return &copied, nil
}

// Advance completes the processing entry, if any, and promotes the next
// waiting entry in enqueue order. The returned entry is nil when the queue
// drains.
func (s *QueueService) Advance(tillID string) *models.QueueEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.till(tillID)
	if current := q.processing(); current != nil {
		current.Status = models.QueueStatusCompleted
	}

	next := q.firstWaiting()
	if next != nil {
		next.Status = models.QueueStatusProcessing
	}
	s.publishDepth(tillID, q)
	if next == nil {
		return nil
	}
	copied := *next
	return &copied
}

// Complete marks the student's entry completed. Unlike Advance it does not
// promote the next entry, so cashiers can pause between students.
func (s *QueueService) Complete(tillID, studentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.till(tillID)
	entry := q.find(studentID)
	if entry == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "student is not queued on this till")
	}
	if entry.Status == models.QueueStatusCompleted {
		return nil
	}
	entry.Status = models.QueueStatusCompleted
	s.publishDepth(tillID, q)
	return nil
}

// Release returns the processing entry to the front of the waiting line.
func (s *QueueService) Release(tillID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.till(tillID)
	current := q.processing()
	if current == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "no student is being processed")
	}
	current.Status = models.QueueStatusWaiting
	return nil
}

// Remove drops a waiting entry from the queue. Absent ids are a no-op.
// Processing entries cannot be removed; release or advance them instead.
func (s *QueueService) Remove(tillID, studentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.till(tillID)
	entry := q.find(studentID)
	if entry == nil {
		return nil
	}
	if entry.Status == models.QueueStatusProcessing {
		return appErrors.Clone(appErrors.ErrConflict, "cannot remove a student being processed")
	}
	s.removeLocked(q, studentID)
	s.publishDepth(tillID, q)
	return nil
}

// ClearCompleted drops completed entries, returning how many were removed.
func (s *QueueService) ClearCompleted(tillID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.till(tillID)
	kept := q.entries[:0]
	removed := 0
	for _, entry := range q.entries {
		if entry.Status == models.QueueStatusCompleted {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	q.entries = kept
	return removed
}

// Snapshot returns a copy of the till's queue state.
func (s *QueueService) Snapshot(tillID string) *models.QueueSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(tillID, s.till(tillID))
}

func (s *QueueService) snapshotLocked(tillID string, q *tillQueue) *models.QueueSnapshot {
	snapshot := &models.QueueSnapshot{TillID: tillID, Entries: make([]models.QueueEntry, 0, len(q.entries))}
	for _, entry := range q.entries {
		snapshot.Entries = append(snapshot.Entries, *entry)
		if entry.Status == models.QueueStatusProcessing {
			copied := *entry
			snapshot.Current = &copied
		}
	}
	return snapshot
}

func (s *QueueService) removeLocked(q *tillQueue, studentID string) {
	kept := q.entries[:0]
	for _, entry := range q.entries {
		if entry.StudentID == studentID {
			continue
		}
		kept = append(kept, entry)
	}
	q.entries = kept
}
