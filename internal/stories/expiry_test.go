package stories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeExpiry(t *testing.T) {
	createdAt := time.Date(2025, 3, 10, 15, 30, 45, 123, time.UTC)
	expiresAt := ComputeExpiry(createdAt)

	assert.Equal(t, createdAt.Add(24*time.Hour), expiresAt)
	assert.Equal(t, 24*time.Hour, expiresAt.Sub(createdAt))
}

func TestIsLive(t *testing.T) {
	createdAt := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	expiresAt := ComputeExpiry(createdAt)

	assert.True(t, IsLive(expiresAt, createdAt))
	assert.True(t, IsLive(expiresAt, expiresAt.Add(-time.Second)))

	// The boundary instant is already expired.
	assert.False(t, IsLive(expiresAt, expiresAt))
	assert.False(t, IsLive(expiresAt, expiresAt.Add(time.Second)))
}
