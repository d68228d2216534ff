package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"safeguard/internal/observability"
	"safeguard/internal/repository"
)

// RetentionSweeper deletes chat attachments older than the retention window.
type RetentionSweeper struct {
	chatRepo  repository.ChatRepository
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	once      sync.Once
}

func NewRetentionSweeper(chatRepo repository.ChatRepository, retention, interval time.Duration) *RetentionSweeper {
	return &RetentionSweeper{
		chatRepo:  chatRepo,
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
}

// Sweep runs one pass and returns the number of attachments removed.
// Attachments uploaded exactly at the cutoff are kept.
func (s *RetentionSweeper) Sweep(ctx context.Context) (int64, error) {
	ctx = observability.WithCorrelationID(ctx, "")
	ctx, span := observability.StartSpan(ctx, "attachment_sweep")
	cutoff := s.now().UTC().Add(-s.retention)

	n, err := s.chatRepo.PurgeAttachmentsBefore(ctx, cutoff)
	observability.EndSpan(span, err)
	observability.LogJob(ctx, "attachment_sweep", err,
		slog.Time("cutoff", cutoff), slog.Int64("deleted", n))
	if err != nil {
		return 0, err
	}
	observability.AttachmentsPurged.Add(float64(n))
	return n, nil
}

// Start sweeps once immediately and then on every interval tick until ctx
// is cancelled. Calling Start more than once has no effect.
func (s *RetentionSweeper) Start(ctx context.Context) {
	s.once.Do(func() {
		go s.loop(ctx)
	})
}

func (s *RetentionSweeper) loop(ctx context.Context) {
	_, _ = s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.Sweep(ctx)
		}
	}
}
