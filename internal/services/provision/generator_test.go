package provision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/webprobe/internal/common"
)

func newTestGenerator(now time.Time) *Generator {
	g := NewGenerator(common.NewDefaultConfig().Account)
	g.now = func() time.Time { return now }
	return g
}

func TestGeneratorNext(t *testing.T) {
	g := newTestGenerator(time.Unix(1700000000, 0))

	account, err := g.Next()
	require.NoError(t, err)

	assert.Equal(t, "seleniumuser1700000000", account.Username)
	assert.Equal(t, "seleniumuser1700000000@example.com", account.Email)
	assert.Equal(t, "ValidPass123!", account.Password)
	assert.Equal(t, "1700000000", account.Vars()["timestamp"])
}

func TestGeneratorUniqueWithinSameSecond(t *testing.T) {
	g := newTestGenerator(time.Unix(1700000000, 0))

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		account, err := g.Next()
		require.NoError(t, err)
		assert.False(t, seen[account.Email], "duplicate email %s", account.Email)
		seen[account.Email] = true
	}
	assert.True(t, seen["seleniumuser1700000004@example.com"])
}

func TestGeneratorRejectsWeakPassword(t *testing.T) {
	config := common.NewDefaultConfig().Account
	config.Password = "password123"

	_, err := NewGenerator(config).Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidAccount)
	assert.Contains(t, err.Error(), "too common")
}

func TestGeneratorRejectsBadDomain(t *testing.T) {
	config := common.NewDefaultConfig().Account
	config.EmailDomain = "localhost"

	_, err := NewGenerator(config).Next()
	assert.ErrorIs(t, err, ErrInvalidAccount)
}
