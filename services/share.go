package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/clipbot/models"
)

// DefaultShareTTL is how long a share link stays redeemable.
const DefaultShareTTL = 7 * 24 * time.Hour

const tokenBytes = 16

// ShareIssuer mints and redeems share tokens.
type ShareIssuer struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewShareIssuer creates an issuer. ttl <= 0 means DefaultShareTTL.
func NewShareIssuer(db *gorm.DB, ttl time.Duration) *ShareIssuer {
	if ttl <= 0 {
		ttl = DefaultShareTTL
	}
	return &ShareIssuer{db: db, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock replaces the clock, for tests.
func (s *ShareIssuer) WithClock(now func() time.Time) *ShareIssuer {
	s.now = now
	return s
}

// TTL is the default lifetime of issued tokens.
func (s *ShareIssuer) TTL() time.Duration {
	return s.ttl
}

// Issue creates a token for contentID. ttl <= 0 uses the issuer's default.
func (s *ShareIssuer) Issue(ctx context.Context, contentID string, issuerID int64, ttl time.Duration) (*models.ShareToken, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Content{}).Where("id = ?", contentID).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("check content %s: %w", contentID, err)
	}
	if n == 0 {
		return nil, ErrContentNotFound
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	st := models.ShareToken{
		Token:     token,
		ContentID: contentID,
		IssuerID:  issuerID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.db.WithContext(ctx).Create(&st).Error; err != nil {
		return nil, fmt.Errorf("store share token: %w", err)
	}
	return &st, nil
}

// Redeem returns the content id bound to token and counts the access.
// Tokens are valid up to and including expires_at; expired ones are deleted on sight.
func (s *ShareIssuer) Redeem(ctx context.Context, token string) (string, error) {
	if len(token) != tokenBytes*2 {
		return "", ErrTokenNotFound
	}
	now := s.now()
	db := s.db.WithContext(ctx)

	res := db.Model(&models.ShareToken{}).
		Where("token = ? AND expires_at >= ?", token, now).
		UpdateColumn("access_count", gorm.Expr("access_count + 1"))
	if res.Error != nil {
		return "", fmt.Errorf("redeem share token: %w", res.Error)
	}

	var st models.ShareToken
	if err := db.First(&st, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("load share token: %w", err)
	}
	if res.RowsAffected == 0 {
		if err := db.Delete(&models.ShareToken{}, "token = ? AND expires_at < ?", token, now).Error; err != nil {
			return "", fmt.Errorf("drop expired share token: %w", err)
		}
		return "", ErrTokenExpired
	}
	return st.ContentID, nil
}

// Sweep deletes every token whose expiry has passed and returns how many went.
func (s *ShareIssuer) Sweep(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", s.now()).Delete(&models.ShareToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("sweep share tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// newToken returns 128 random bits as lowercase hex.
func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate share token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
