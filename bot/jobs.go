package bot

import (
	"context"

	"go.uber.org/zap"

	"github.com/cppla/clipbot/utils"
)

// RegisterJobs schedules the share-token sweep and the heartbeat. Empty specs disable a job.
func (b *Bot) RegisterJobs() error {
	if spec := b.cfg.ShareSweepSpec; spec != "" {
		if err := b.scheduler.Every(spec, "share-sweep", func(ctx context.Context) { b.SweepShares(ctx) }); err != nil {
			return err
		}
	}
	if spec := b.cfg.HeartbeatSpec; spec != "" {
		if err := b.scheduler.Every(spec, "heartbeat", b.heartbeat); err != nil {
			return err
		}
	}
	return nil
}

// SweepShares deletes expired share tokens.
func (b *Bot) SweepShares(ctx context.Context) (int64, error) {
	n, err := b.shares.Sweep(ctx)
	if err != nil {
		utils.Logger.Error("share sweep failed", zap.Error(err))
		return 0, err
	}
	utils.Stats.SweptTokens.Add(float64(n))
	utils.Logger.Info("share sweep done", zap.Int64("deleted", n))
	return n, nil
}

func (b *Bot) heartbeat(context.Context) {
	utils.Logger.Info("bot is running", zap.Int("pending_deletes", b.scheduler.Pending()))
}
