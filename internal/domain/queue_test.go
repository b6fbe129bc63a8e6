package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuedNotificationMarkSent(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	entry := &QueuedNotification{}

	entry.MarkSent(now)

	assert.True(t, entry.IsSent)
	require.NotNil(t, entry.SentAt)
	assert.Equal(t, now, *entry.SentAt)
}

func TestRecordFailure(t *testing.T) {
	entry := &QueuedNotification{}

	entry.RecordFailure("smtp timeout", 3)
	assert.Equal(t, 1, entry.RetryCount)
	assert.Equal(t, "smtp timeout", entry.FailureReason)
	assert.False(t, entry.Failed)

	entry.RecordFailure("smtp timeout", 3)
	assert.Equal(t, 2, entry.RetryCount)
	assert.False(t, entry.Failed)

	// Третья неудача исчерпывает попытки
	entry.RecordFailure("connection refused", 3)
	assert.Equal(t, 3, entry.RetryCount)
	assert.Equal(t, "connection refused", entry.FailureReason)
	assert.True(t, entry.Failed)
}
