package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/RedRangerWentWild/IITR1/internal/database"
	"github.com/RedRangerWentWild/IITR1/internal/queue"
	"go.uber.org/zap"
)

// Recorder applies the post-send writes: the sent transition on the ledger
// entry and, only when that transition was won, the daily reply increment.
type Recorder struct {
	logs    database.ConversionLogRepositoryInterface
	metrics database.DailyMetricsRepositoryInterface
	logger  *zap.Logger
}

// NewRecorder creates a Recorder
func NewRecorder(
	logs database.ConversionLogRepositoryInterface,
	metrics database.DailyMetricsRepositoryInterface,
	log *zap.Logger,
) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{logs: logs, metrics: metrics, logger: log}
}

// Record finishes pending. Losing the transition to a concurrent send is
// not an error and skips the increment. On failure pending.LedgerApplied
// tells the caller which step remains.
func (r *Recorder) Record(ctx context.Context, pending *PendingDelivery) error {
	if !pending.LedgerApplied {
		err := r.logs.MarkSent(ctx, pending.EntryID, pending.UserID, pending.Update)
		if errors.Is(err, database.ErrAlreadySent) {
			r.logger.Error("delivery_duplicate_send",
				zap.String("entry_id", pending.EntryID.String()),
				zap.String("message_id", pending.Update.MessageID),
			)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to mark draft sent: %w", err)
		}
		pending.LedgerApplied = true
	}

	if err := r.metrics.IncrementReplies(ctx, pending.UserID, pending.Update.SentAt); err != nil {
		return fmt.Errorf("failed to increment daily replies: %w", err)
	}
	return nil
}

// QueueReconciler hands unrecorded deliveries to the job queue
type QueueReconciler struct {
	queue queue.JobQueue
}

var _ Reconciler = (*QueueReconciler)(nil)

// NewQueueReconciler creates a QueueReconciler
func NewQueueReconciler(q queue.JobQueue) *QueueReconciler {
	return &QueueReconciler{queue: q}
}

// RecordDelivery enqueues a record_delivery job
func (r *QueueReconciler) RecordDelivery(ctx context.Context, pending PendingDelivery) error {
	if err := r.queue.Enqueue(ctx, JobFromPending(pending)); err != nil {
		return fmt.Errorf("failed to enqueue delivery record: %w", err)
	}
	return nil
}

// JobFromPending converts pending into a queue job
func JobFromPending(pending PendingDelivery) *queue.Job {
	job := queue.NewRecordDeliveryJob(pending.UserID, pending.EntryID, pending.Update)
	job.LedgerApplied = pending.LedgerApplied
	return job
}

// PendingFromJob reads the delivery payload back out of a job
func PendingFromJob(job *queue.Job) (*PendingDelivery, error) {
	if job.Type != queue.JobTypeRecordDelivery {
		return nil, fmt.Errorf("unexpected job type %q", job.Type)
	}
	if job.EntryID == nil || job.Update == nil {
		return nil, errors.New("record_delivery job is missing its payload")
	}
	return &PendingDelivery{
		EntryID:       *job.EntryID,
		UserID:        job.UserID,
		Update:        *job.Update,
		LedgerApplied: job.LedgerApplied,
	}, nil
}
