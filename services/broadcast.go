package services

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cppla/clipbot/telegram"
	"github.com/cppla/clipbot/utils"
)

// DefaultBroadcastInterval spaces sends to stay under Telegram's global rate limit.
const DefaultBroadcastInterval = 50 * time.Millisecond

// Sender delivers one message and returns the new message id.
type Sender interface {
	Send(ctx context.Context, chatID int64, msg telegram.Outgoing) (int, error)
}

// BroadcastResult tallies one fan-out run.
type BroadcastResult struct {
	Total   int     `json:"total"`
	Success int     `json:"success"`
	Failure int     `json:"failure"`
	Failed  []int64 `json:"failed,omitempty"`
}

// Broadcaster sends one message to every recipient, one at a time, at a fixed rate.
type Broadcaster struct {
	sender   Sender
	interval time.Duration
}

// NewBroadcaster creates a Broadcaster. interval <= 0 disables the throttle.
func NewBroadcaster(sender Sender, interval time.Duration) *Broadcaster {
	return &Broadcaster{sender: sender, interval: interval}
}

// Broadcast sends msg to each id in audience. A failed recipient is logged, counted and skipped.
// Cancelling ctx stops the run; the partial tally is returned with ctx's error.
func (b *Broadcaster) Broadcast(ctx context.Context, msg telegram.Outgoing, audience []int64) (BroadcastResult, error) {
	res := BroadcastResult{Total: len(audience)}
	limit := rate.Inf
	if b.interval > 0 {
		limit = rate.Every(b.interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	for _, chatID := range audience {
		if err := limiter.Wait(ctx); err != nil {
			return res, err
		}
		if _, err := b.sender.Send(ctx, chatID, msg); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Failure++
			res.Failed = append(res.Failed, chatID)
			utils.Stats.Broadcasts.WithLabelValues("failure").Inc()
			utils.Logger.Warn("broadcast delivery failed", zap.Int64("chat_id", chatID), zap.Error(err))
			continue
		}
		res.Success++
		utils.Stats.Broadcasts.WithLabelValues("success").Inc()
	}
	return res, nil
}
