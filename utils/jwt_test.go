package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/clipbot/config"
)

func withJWTSecret(t *testing.T, secret string) {
	t.Helper()
	prev := config.Get()
	next := prev
	next.JWTSecret = secret
	config.Set(next)
	t.Cleanup(func() { config.Set(prev) })
}

func TestTokenRoundTrip(t *testing.T) {
	withJWTSecret(t, "k1")

	token, err := GenerateToken("admin", RoleAdmin, time.Hour)
	require.NoError(t, err)
	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, "clipbot", claims.Issuer)
}

func TestTokenRejected(t *testing.T) {
	withJWTSecret(t, "k1")
	expired, err := GenerateToken("admin", RoleAdmin, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired)
	assert.Error(t, err)

	valid, err := GenerateToken("admin", RoleAdmin, time.Hour)
	require.NoError(t, err)
	withJWTSecret(t, "k2")
	_, err = ParseToken(valid)
	assert.Error(t, err)
}

func TestTokenWithoutSecret(t *testing.T) {
	withJWTSecret(t, "")
	_, err := GenerateToken("admin", RoleAdmin, time.Hour)
	assert.ErrorIs(t, err, ErrJWTSecretMissing)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "correct horsE"))
	assert.False(t, CheckPassword("", "correct horse"))

	_, err = HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Dark & Stormy", SanitizePlain("  <b>Dark</b> &amp; Stormy "))
	assert.Equal(t, "<b>hi</b> there", SanitizeTelegramHTML("<b>hi</b> <script>x</script>there"))
}

func TestVisibleLen(t *testing.T) {
	assert.Equal(t, 5, VisibleLen(`<a href="https://example.com/very/long">a &amp; b</a>`))
	// astral emoji take two UTF-16 units
	assert.Equal(t, 3, VisibleLen("📢x"))
}
