package store

import (
	"context"
	"testing"
	"time"

	"turfbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyQueueLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task := &models.NotifyTask{
		BookingID: "b1",
		Payload:   `{"booking_id":"b1","message":"hi"}`,
		Status:    "pending",
	}
	require.NoError(t, s.CreateNotifyTask(ctx, task))
	assert.NotZero(t, task.ID)

	pending, err := s.GetPendingNotifyTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "b1", pending[0].BookingID)

	// retry с будущим next_retry_at выпадает из выборки.
	next := time.Now().Add(time.Hour)
	require.NoError(t, s.UpdateNotifyTaskStatus(ctx, task.ID, "retry", "network", &next))

	pending, err = s.GetPendingNotifyTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Просроченный next_retry_at снова попадает в выборку с выросшим счетчиком.
	past := time.Now().Add(-time.Minute)
	require.NoError(t, s.UpdateNotifyTaskStatus(ctx, task.ID, "retry", "network", &past))

	pending, err = s.GetPendingNotifyTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].RetryCount)

	require.NoError(t, s.UpdateNotifyTaskStatus(ctx, task.ID, "completed", "", nil))
	pending, err = s.GetPendingNotifyTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestGetFailedNotifyTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task := &models.NotifyTask{BookingID: "b2", Payload: "{}", Status: "pending"}
	require.NoError(t, s.CreateNotifyTask(ctx, task))
	require.NoError(t, s.UpdateNotifyTaskStatus(ctx, task.ID, "failed", "gave up", nil))

	failed, err := s.GetFailedNotifyTasks(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "gave up", failed[0].LastError)
	assert.NotNil(t, failed[0].ProcessedAt)
}
