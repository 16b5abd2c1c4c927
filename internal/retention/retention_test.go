package retention

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"teamchat/internal/mocks"
)

func TestNewJobValidates(t *testing.T) {
	_, err := NewJob(nil, "not a cron", 30)
	assert.Error(t, err)

	_, err = NewJob(nil, "0 3 * * *", 0)
	assert.Error(t, err)

	job, err := NewJob(nil, "", 30)
	require.NoError(t, err)
	assert.Equal(t, "0 3 * * *", job.cron)
}

func TestNextTick(t *testing.T) {
	job, err := NewJob(nil, "0 3 * * *", 30)
	require.NoError(t, err)

	next, err := job.Next(time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 2, 3, 0, 0, 0, time.UTC), next)
}

func TestRunOnceUsesCutoff(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	job, err := NewJob(repo, "0 3 * * *", 30)
	require.NoError(t, err)
	now := time.Date(2024, 5, 31, 3, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	repo.On("PurgeNotificationsBefore", context.Background(), time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)).Return(int64(7), nil).Once()

	n, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	repo.AssertExpectations(t)
}

func TestRunOnceWrapsError(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	job, err := NewJob(repo, "0 3 * * *", 1)
	require.NoError(t, err)

	repo.On("PurgeNotificationsBefore", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(0), assert.AnError).Once()
	_, err = job.RunOnce(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestRunStopsOnCancel(t *testing.T) {
	job, err := NewJob(new(mocks.MessageRepositoryMock), "0 3 * * *", 30)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
