package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confession-hub/confession-bot/internal/domain/ranking"
	"github.com/confession-hub/confession-bot/internal/domain/shared"
)

type fakeBoardRepo struct {
	affected    int64
	err         error
	resetWindow ranking.Window
}

func (f *fakeBoardRepo) TopUsers(_ context.Context, _ ranking.Window, _ int) ([]ranking.RankedUser, error) {
	return nil, nil
}

func (f *fakeBoardRepo) ResetWindow(_ context.Context, window ranking.Window) (int64, error) {
	f.resetWindow = window
	return f.affected, f.err
}

type fakeInvalidator struct {
	windows []ranking.Window
}

func (f *fakeInvalidator) Invalidate(_ context.Context, window ranking.Window) {
	f.windows = append(f.windows, window)
}

type fakePublisher struct {
	events []shared.Event
	err    error
}

func (f *fakePublisher) Publish(event shared.Event) error {
	f.events = append(f.events, event)
	return f.err
}

func TestResetWindowJob_Run(t *testing.T) {
	repo := &fakeBoardRepo{affected: 128}
	inv := &fakeInvalidator{}
	pub := &fakePublisher{}
	job := NewResetWindowJob(ranking.WindowWeekly, repo, inv, pub, nil)

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, ranking.WindowWeekly, repo.resetWindow)
	assert.Equal(t, []ranking.Window{ranking.WindowWeekly}, inv.windows)

	require.Len(t, pub.events, 1)
	assert.Equal(t, shared.EventWeeklyWindowReset, pub.events[0].EventType())
}

func TestResetWindowJob_RunPropagatesRepoError(t *testing.T) {
	repo := &fakeBoardRepo{err: errors.New("connection lost")}
	job := NewResetWindowJob(ranking.WindowMonthly, repo, nil, nil, nil)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monthly")
}

func TestResetWindowJob_PublishFailureDoesNotFailReset(t *testing.T) {
	repo := &fakeBoardRepo{affected: 5}
	pub := &fakePublisher{err: errors.New("bus closed")}
	job := NewResetWindowJob(ranking.WindowMonthly, repo, nil, pub, nil)

	assert.NoError(t, job.Run(context.Background()))
}

func TestResetWindowJob_Name(t *testing.T) {
	job := NewResetWindowJob(ranking.WindowWeekly, &fakeBoardRepo{}, nil, nil, nil)
	assert.Equal(t, "reset_weekly_window", job.Name())
}
