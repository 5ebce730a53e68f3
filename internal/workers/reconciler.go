package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/RedRangerWentWild/IITR1/internal/queue"
	"github.com/RedRangerWentWild/IITR1/internal/services/delivery"
	"go.uber.org/zap"
)

const (
	// DefaultRetryBase is the first re-enqueue delay for a failed record job
	DefaultRetryBase = 30 * time.Second
	// MaxRetryDelay caps the re-enqueue delay
	MaxRetryDelay = 30 * time.Minute
)

// DeliveryRecorder applies a pending delivery to the ledger and metrics
type DeliveryRecorder interface {
	Record(ctx context.Context, pending *delivery.PendingDelivery) error
}

var _ DeliveryRecorder = (*delivery.Recorder)(nil)

// DeliveryReconciler processes record_delivery jobs
type DeliveryReconciler struct {
	recorder  DeliveryRecorder
	jobQueue  queue.JobQueue // For re-enqueueing jobs with delays
	logger    *zap.Logger
	retryBase time.Duration
	now       func() time.Time
}

// NewDeliveryReconciler creates a new reconciler. jobQueue may be nil, in
// which case failed jobs are requeued immediately.
func NewDeliveryReconciler(recorder DeliveryRecorder, jobQueue queue.JobQueue, log *zap.Logger) *DeliveryReconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &DeliveryReconciler{
		recorder:  recorder,
		jobQueue:  jobQueue,
		logger:    log,
		retryBase: DefaultRetryBase,
		now:       time.Now,
	}
}

// ProcessJob processes a job based on its type
func (r *DeliveryReconciler) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	if job.IsExpired() {
		r.logger.Warn("reconcile_job_expired", zap.String("job_id", job.ID.String()))
		if nackErr := msg.Nack(false); nackErr != nil {
			return fmt.Errorf("failed to nack expired job: %w", nackErr)
		}
		return nil
	}

	if !job.ShouldProcess() {
		if nackErr := msg.Nack(true); nackErr != nil {
			return fmt.Errorf("failed to requeue early job: %w", nackErr)
		}
		return nil
	}

	switch job.Type {
	case queue.JobTypeRecordDelivery:
		pending, err := delivery.PendingFromJob(job)
		if err != nil {
			// Malformed payloads never succeed, send to DLQ
			if nackErr := msg.Nack(false); nackErr != nil {
				r.logger.Error("reconcile_nack_failed", zap.Error(nackErr))
			}
			return fmt.Errorf("invalid record_delivery job %s: %w", job.ID, err)
		}

		if err := r.recorder.Record(ctx, pending); err != nil {
			return r.handleJobError(ctx, msg, job, pending, err)
		}

		r.logger.Info("delivery_reconciled",
			zap.String("job_id", job.ID.String()),
			zap.String("entry_id", pending.EntryID.String()),
			zap.String("user_id", pending.UserID.String()),
			zap.Int("retry_count", job.RetryCount),
		)
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			r.logger.Error("reconcile_nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// handleJobError re-enqueues the job with a delay, carrying forward the
// progress in pending, until the retry budget is spent.
func (r *DeliveryReconciler) handleJobError(
	ctx context.Context,
	msg queue.MessageInterface,
	job *queue.Job,
	pending *delivery.PendingDelivery,
	err error,
) error {
	if !job.CanRetry() {
		r.logger.Error("reconcile_job_dead_lettered",
			zap.String("job_id", job.ID.String()),
			zap.String("entry_id", pending.EntryID.String()),
			zap.Int("max_retries", job.MaxRetries),
			zap.Error(err),
		)
		if nackErr := msg.Nack(false); nackErr != nil {
			r.logger.Error("reconcile_nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("job failed (max retries): %w", err)
	}

	if r.jobQueue == nil {
		if nackErr := msg.Nack(true); nackErr != nil {
			r.logger.Error("reconcile_nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	delay := r.retryDelay(job.RetryCount)
	notBefore := r.now().Add(delay)

	retry := delivery.JobFromPending(*pending)
	retry.ID = job.ID
	retry.CreatedAt = job.CreatedAt
	retry.NotAfter = job.NotAfter
	retry.NotBefore = &notBefore
	retry.RetryCount = job.RetryCount + 1
	retry.MaxRetries = job.MaxRetries

	if enqueueErr := r.jobQueue.Enqueue(ctx, retry); enqueueErr != nil {
		// Fall back to nack with requeue
		if nackErr := msg.Nack(true); nackErr != nil {
			r.logger.Error("reconcile_nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("failed to re-enqueue job: %w", enqueueErr)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		r.logger.Warn("reconcile_ack_failed", zap.String("job_id", job.ID.String()), zap.Error(ackErr))
	}

	r.logger.Warn("reconcile_job_retry_scheduled",
		zap.String("job_id", job.ID.String()),
		zap.String("entry_id", pending.EntryID.String()),
		zap.Bool("ledger_applied", pending.LedgerApplied),
		zap.Int("attempt", retry.RetryCount),
		zap.Duration("delay", delay),
		zap.Error(err),
	)
	return nil
}

func (r *DeliveryReconciler) retryDelay(retryCount int) time.Duration {
	delay := r.retryBase
	for i := 0; i < retryCount; i++ {
		delay *= 2
		if delay >= MaxRetryDelay {
			return MaxRetryDelay
		}
	}
	return delay
}

// Run consumes messages until ctx is cancelled or the message channel closes
func (r *DeliveryReconciler) Run(ctx context.Context, msgs <-chan *queue.Message, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			r.logger.Error("queue_error", zap.Error(err))
		case msg, ok := <-msgs:
			if !ok {
				r.logger.Info("message_channel_closed")
				return
			}
			if err := r.ProcessJob(ctx, msg); err != nil {
				r.logger.Error("job_processing_failed",
					zap.Error(err),
					zap.String("job_id", msg.GetJob().ID.String()),
					zap.String("job_type", string(msg.GetJob().Type)),
				)
			}
		}
	}
}
