package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/redis/go-redis/v9"

	"github.com/cppla/clipbot/wizard"
)

const sessionKeyPrefix = "bot:session:"

// SessionStore keeps at most one wizard session per admin.
// Sessions never expire; /cancel or completion removes them.
type SessionStore interface {
	Get(ctx context.Context, userID int64) (wizard.Session, bool, error)
	Put(ctx context.Context, userID int64, s wizard.Session) error
	Delete(ctx context.Context, userID int64) (bool, error)
}

// NewSessionStore uses Redis when rc is non-nil and process memory otherwise.
func NewSessionStore(rc *redis.Client) SessionStore {
	if rc == nil {
		return &memorySessions{m: cmap.New[[]byte]()}
	}
	return &redisSessions{rc: rc}
}

type redisSessions struct {
	rc *redis.Client
}

func sessionKey(userID int64) string {
	return sessionKeyPrefix + strconv.FormatInt(userID, 10)
}

func (r *redisSessions) Get(ctx context.Context, userID int64) (wizard.Session, bool, error) {
	b, err := r.rc.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load session %d: %w", userID, err)
	}
	s, err := wizard.Unmarshal(b)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

func (r *redisSessions) Put(ctx context.Context, userID int64, s wizard.Session) error {
	b, err := wizard.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %d: %w", userID, err)
	}
	if err := r.rc.Set(ctx, sessionKey(userID), b, 0).Err(); err != nil {
		return fmt.Errorf("store session %d: %w", userID, err)
	}
	return nil
}

func (r *redisSessions) Delete(ctx context.Context, userID int64) (bool, error) {
	n, err := r.rc.Del(ctx, sessionKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("delete session %d: %w", userID, err)
	}
	return n > 0, nil
}

// memorySessions stores the encoded form so callers never share a live session value.
type memorySessions struct {
	m cmap.ConcurrentMap[string, []byte]
}

func (m *memorySessions) Get(_ context.Context, userID int64) (wizard.Session, bool, error) {
	b, ok := m.m.Get(sessionKey(userID))
	if !ok {
		return nil, false, nil
	}
	s, err := wizard.Unmarshal(b)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

func (m *memorySessions) Put(_ context.Context, userID int64, s wizard.Session) error {
	b, err := wizard.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %d: %w", userID, err)
	}
	m.m.Set(sessionKey(userID), b)
	return nil
}

func (m *memorySessions) Delete(_ context.Context, userID int64) (bool, error) {
	_, ok := m.m.Pop(sessionKey(userID))
	return ok, nil
}
