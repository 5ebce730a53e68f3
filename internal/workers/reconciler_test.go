package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/RedRangerWentWild/IITR1/internal/queue"
	"github.com/RedRangerWentWild/IITR1/internal/services/delivery"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// mockRecorder is a mock implementation of DeliveryRecorder
type mockRecorder struct {
	mu       sync.Mutex
	calls    []delivery.PendingDelivery
	recordFn func(p *delivery.PendingDelivery) error
}

func (m *mockRecorder) Record(_ context.Context, p *delivery.PendingDelivery) error {
	m.mu.Lock()
	m.calls = append(m.calls, *p)
	m.mu.Unlock()
	if m.recordFn != nil {
		return m.recordFn(p)
	}
	return nil
}

var _ DeliveryRecorder = (*mockRecorder)(nil)

// mockJobQueue is a mock implementation of JobQueue
type mockJobQueue struct {
	enqueueFunc func(ctx context.Context, job *queue.Job) error
	enqueued    []*queue.Job
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	m.enqueued = append(m.enqueued, job)
	if m.enqueueFunc != nil {
		return m.enqueueFunc(ctx, job)
	}
	return nil
}

func (m *mockJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}

func (m *mockJobQueue) Close() error {
	return nil
}

func (m *mockJobQueue) HealthCheck(ctx context.Context) error {
	return nil
}

var _ queue.JobQueue = (*mockJobQueue)(nil)

// mockMessage is a mock implementation of MessageInterface
type mockMessage struct {
	job     *queue.Job
	acked   bool
	nacked  bool
	requeue bool
}

func (m *mockMessage) Ack() error {
	m.acked = true
	return nil
}

func (m *mockMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeue = requeue
	return nil
}

func (m *mockMessage) GetJob() *queue.Job {
	return m.job
}

var _ queue.MessageInterface = (*mockMessage)(nil)

func recordJob() *queue.Job {
	sentAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	update := models.NewSentUpdate(sentAt.Add(-2*time.Minute), sentAt, false, "msg-1")
	return queue.NewRecordDeliveryJob(uuid.New(), uuid.New(), update)
}

func TestDeliveryReconciler_ProcessJob(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		job         func() *queue.Job
		recordErr   error
		expectError bool
		wantAck     bool
		wantNack    bool
		wantRequeue bool
		wantRecord  bool
	}{
		{
			name:       "record succeeds",
			job:        recordJob,
			wantAck:    true,
			wantRecord: true,
		},
		{
			name: "unknown job type",
			job: func() *queue.Job {
				return queue.NewJob(queue.JobType("unknown"), uuid.New())
			},
			expectError: true,
			wantNack:    true,
		},
		{
			name: "missing payload",
			job: func() *queue.Job {
				return queue.NewJob(queue.JobTypeRecordDelivery, uuid.New())
			},
			expectError: true,
			wantNack:    true,
		},
		{
			name: "job not ready yet",
			job: func() *queue.Job {
				j := recordJob()
				j.NotBefore = timePtr(time.Now().Add(time.Hour))
				return j
			},
			wantNack:    true,
			wantRequeue: true,
		},
		{
			name: "expired job",
			job: func() *queue.Job {
				j := recordJob()
				j.NotAfter = timePtr(time.Now().Add(-time.Hour))
				return j
			},
			wantNack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			recorder := &mockRecorder{}
			r := NewDeliveryReconciler(recorder, &mockJobQueue{}, zap.NewNop())
			msg := &mockMessage{job: tt.job()}

			err := r.ProcessJob(context.Background(), msg)

			if tt.expectError && err == nil {
				t.Error("Expected error but got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if msg.acked != tt.wantAck {
				t.Errorf("Expected acked=%v, got %v", tt.wantAck, msg.acked)
			}
			if msg.nacked != tt.wantNack {
				t.Errorf("Expected nacked=%v, got %v", tt.wantNack, msg.nacked)
			}
			if msg.requeue != tt.wantRequeue {
				t.Errorf("Expected requeue=%v, got %v", tt.wantRequeue, msg.requeue)
			}
			if (len(recorder.calls) > 0) != tt.wantRecord {
				t.Errorf("Expected record called=%v, got %d calls", tt.wantRecord, len(recorder.calls))
			}
		})
	}
}

func TestDeliveryReconciler_RetryCarriesProgress(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recorder := &mockRecorder{
		recordFn: func(p *delivery.PendingDelivery) error {
			p.LedgerApplied = true
			return errors.New("metrics down")
		},
	}
	q := &mockJobQueue{}
	r := NewDeliveryReconciler(recorder, q, zap.NewNop())
	r.now = func() time.Time { return now }

	job := recordJob()
	job.RetryCount = 1
	msg := &mockMessage{job: job}

	if err := r.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !msg.acked {
		t.Error("Expected original message to be acked after re-enqueue")
	}
	if len(q.enqueued) != 1 {
		t.Fatalf("Expected 1 re-enqueued job, got %d", len(q.enqueued))
	}

	retry := q.enqueued[0]
	if retry.ID != job.ID {
		t.Errorf("Expected retry to keep job ID %s, got %s", job.ID, retry.ID)
	}
	if !retry.LedgerApplied {
		t.Error("Expected retry to skip the ledger write")
	}
	if retry.RetryCount != 2 {
		t.Errorf("Expected retry count 2, got %d", retry.RetryCount)
	}
	if retry.NotBefore == nil || !retry.NotBefore.Equal(now.Add(2*DefaultRetryBase)) {
		t.Errorf("Expected NotBefore %v, got %v", now.Add(2*DefaultRetryBase), retry.NotBefore)
	}
}

func TestDeliveryReconciler_MaxRetriesDeadLetters(t *testing.T) {
	t.Parallel()

	recorder := &mockRecorder{recordFn: func(*delivery.PendingDelivery) error { return errors.New("db down") }}
	q := &mockJobQueue{}
	r := NewDeliveryReconciler(recorder, q, zap.NewNop())

	job := recordJob()
	job.RetryCount = job.MaxRetries
	msg := &mockMessage{job: job}

	if err := r.ProcessJob(context.Background(), msg); err == nil {
		t.Error("Expected error but got nil")
	}
	if !msg.nacked || msg.requeue {
		t.Errorf("Expected nack without requeue, got nacked=%v requeue=%v", msg.nacked, msg.requeue)
	}
	if len(q.enqueued) != 0 {
		t.Errorf("Expected no re-enqueue, got %d", len(q.enqueued))
	}
}

func TestDeliveryReconciler_EnqueueFailureRequeues(t *testing.T) {
	t.Parallel()

	recorder := &mockRecorder{recordFn: func(*delivery.PendingDelivery) error { return errors.New("db down") }}
	q := &mockJobQueue{enqueueFunc: func(context.Context, *queue.Job) error { return errors.New("broker down") }}
	r := NewDeliveryReconciler(recorder, q, zap.NewNop())
	msg := &mockMessage{job: recordJob()}

	if err := r.ProcessJob(context.Background(), msg); err == nil {
		t.Error("Expected error but got nil")
	}
	if msg.acked {
		t.Error("Expected message not to be acked")
	}
	if !msg.nacked || !msg.requeue {
		t.Errorf("Expected nack with requeue, got nacked=%v requeue=%v", msg.nacked, msg.requeue)
	}
}

func TestDeliveryReconciler_RetryDelay(t *testing.T) {
	t.Parallel()

	r := NewDeliveryReconciler(&mockRecorder{}, nil, nil)

	tests := []struct {
		retries int
		want    time.Duration
	}{
		{0, DefaultRetryBase},
		{1, 2 * DefaultRetryBase},
		{3, 8 * DefaultRetryBase},
		{10, MaxRetryDelay},
	}
	for _, tt := range tests {
		if got := r.retryDelay(tt.retries); got != tt.want {
			t.Errorf("retryDelay(%d) = %v, want %v", tt.retries, got, tt.want)
		}
	}
}

func TestDeliveryReconciler_Run_StopsOnClosedChannel(t *testing.T) {
	t.Parallel()

	r := NewDeliveryReconciler(&mockRecorder{}, nil, zap.NewNop())
	msgs := make(chan *queue.Message)
	errs := make(chan error)
	close(msgs)

	done := make(chan struct{})
	go func() {
		r.Run(context.Background(), msgs, errs)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after the message channel closed")
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
