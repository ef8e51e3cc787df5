package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/interview-simulator/internal/repositories"
)

// Worker generates reports for completed sessions in the background.
type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueJob(sessionID uuid.UUID)
}

type worker struct {
	sessions     repositories.SessionRepository
	reports      ReportService
	jobQueue     chan uuid.UUID
	concurrency  int
	pollInterval time.Duration
	wg           sync.WaitGroup
	stopChan     chan struct{}
	stopOnce     sync.Once
	log          *zap.Logger
}

func NewWorker(
	sessions repositories.SessionRepository,
	reports ReportService,
	concurrency int,
	pollInterval time.Duration,
	log *zap.Logger,
) Worker {
	if log == nil {
		log = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &worker{
		sessions:     sessions,
		reports:      reports,
		jobQueue:     make(chan uuid.UUID, 100),
		concurrency:  concurrency,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		log:          log,
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	w.log.Info("🚀 Starting report worker", zap.Int("concurrency", w.concurrency))

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	if w.pollInterval > 0 {
		w.wg.Add(1)
		go w.pollPendingReports(ctx)
	}
}

// Stop implements Worker.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		w.log.Info("🛑 Stopping report worker...")
		close(w.stopChan)
		w.wg.Wait()
		w.log.Info("✅ Report worker stopped")
	})
}

// EnqueueJob implements Worker. A full queue drops the job; the poller picks
// the session up on its next pass.
func (w *worker) EnqueueJob(sessionID uuid.UUID) {
	select {
	case <-w.stopChan:
		w.log.Warn("worker stopped, report job not enqueued", zap.String("session_id", sessionID.String()))
	case w.jobQueue <- sessionID:
		w.log.Debug("📥 Report job enqueued", zap.String("session_id", sessionID.String()))
	default:
		w.log.Warn("report queue full, leaving job to the poller", zap.String("session_id", sessionID.String()))
	}
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case sessionID := <-w.jobQueue:
			log := w.log.With(zap.Int("worker", workerID), zap.String("session_id", sessionID.String()))
			if err := w.reports.Generate(ctx, sessionID); err != nil {
				log.Error("❌ Report generation failed", zap.Error(err))
				continue
			}
			log.Debug("report job done")
		}
	}
}

func (w *worker) pollPendingReports(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			pending, err := w.sessions.FindCompletedWithoutReport(ctx, 10)
			if err != nil {
				w.log.Warn("failed to fetch sessions awaiting a report", zap.Error(err))
				continue
			}
			if len(pending) > 0 {
				w.log.Info("📋 Found sessions awaiting a report", zap.Int("count", len(pending)))
			}
			for _, session := range pending {
				w.EnqueueJob(session.ID)
			}
		}
	}
}
