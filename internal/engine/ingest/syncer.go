package ingest

import (
	"context"
	"time"

	"go.trai.ch/ims/internal/core/domain"
	"go.trai.ch/ims/internal/core/ports"
)

// Syncer replays the registry feed into an Engine, session after session.
type Syncer struct {
	engine     *Engine
	feed       ports.ChangeFeed
	checkpoint ports.CheckpointStore
	status     *domain.SyncStatus
	logger     ports.Logger
	retryDelay time.Duration
}

// NewSyncer creates a Syncer that waits retryDelay between sessions.
func NewSyncer(
	engine *Engine,
	feed ports.ChangeFeed,
	checkpoint ports.CheckpointStore,
	status *domain.SyncStatus,
	logger ports.Logger,
	retryDelay time.Duration,
) *Syncer {
	return &Syncer{
		engine:     engine,
		feed:       feed,
		checkpoint: checkpoint,
		status:     status,
		logger:     logger,
		retryDelay: retryDelay,
	}
}

// RunOnce streams the feed from the last durable checkpoint until the feed
// ends or an event fails.
func (s *Syncer) RunOnce(ctx context.Context) error {
	since, err := s.checkpoint.Read()
	if err != nil {
		return err
	}

	s.status.SetSeq(since)
	s.logger.Info("sync session started", "since", since)

	err = s.feed.Stream(ctx, since, s.engine.Ingest)
	s.status.SetPhase(domain.PhaseIdle)
	return err
}

// Run repeats sync sessions until ctx is cancelled. A failed session is
// logged and retried from the last checkpoint after the retry delay.
func (s *Syncer) Run(ctx context.Context) error {
	for session := 1; ; session++ {
		err := s.RunOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			s.logger.Warn("sync session failed", "session", session, "error", err.Error())
		} else {
			s.logger.Info("sync session ended", "session", session)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.retryDelay):
		}
	}
}
