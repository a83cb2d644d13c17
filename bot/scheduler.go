package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/cppla/clipbot/utils"
)

// MessageKey identifies a sent message.
type MessageKey struct {
	ChatID    int64
	MessageID int
}

func (k MessageKey) String() string {
	return fmt.Sprintf("%d:%d", k.ChatID, k.MessageID)
}

type delayedTask struct {
	timer *time.Timer
}

// Scheduler runs one-shot callbacks keyed by message and periodic jobs.
// One-shot tasks can be cancelled until they fire.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	cron   *cron.Cron
	tasks  cmap.ConcurrentMap[MessageKey, *delayedTask]

	mu        sync.Mutex // serializes After, Cancel and Stop
	startOnce sync.Once
}

func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		ctx:    ctx,
		cancel: cancel,
		cron:   cron.New(),
		tasks:  cmap.NewStringer[MessageKey, *delayedTask](),
	}
}

// After runs fn once after d. Scheduling the same key again replaces the pending task.
func (s *Scheduler) After(key MessageKey, d time.Duration, fn func(context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := &delayedTask{}
	s.tasks.Upsert(key, task, func(exists bool, old *delayedTask, _ *delayedTask) *delayedTask {
		if exists {
			old.timer.Stop()
		}
		return task
	})
	task.timer = time.AfterFunc(d, func() {
		fired := s.tasks.RemoveCb(key, func(_ MessageKey, v *delayedTask, exists bool) bool {
			return exists && v == task
		})
		if !fired || s.ctx.Err() != nil {
			return
		}
		fn(s.ctx)
	})
}

// Cancel drops the pending task for key. It reports whether a task was removed before firing.
func (s *Scheduler) Cancel(key MessageKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks.Pop(key)
	if !ok {
		return false
	}
	task.timer.Stop()
	return true
}

// Pending is the number of one-shot tasks waiting to fire.
func (s *Scheduler) Pending() int {
	return s.tasks.Count()
}

// Every registers fn on a cron spec such as "@every 6h" or "0 4 * * *".
// Jobs start running after Start.
func (s *Scheduler) Every(spec, name string, fn func(context.Context)) error {
	_, err := s.cron.AddFunc(spec, func() {
		defer func() {
			if r := recover(); r != nil {
				utils.Logger.Error("scheduled job panicked", zap.String("job", name), zap.Any("panic", r))
			}
		}()
		if s.ctx.Err() != nil {
			return
		}
		fn(s.ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.startOnce.Do(s.cron.Start)
}

// Stop cancels every pending one-shot task and waits for running cron jobs.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	s.mu.Lock()
	for item := range s.tasks.IterBuffered() {
		item.Val.timer.Stop()
		s.tasks.Remove(item.Key)
	}
	s.mu.Unlock()
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
