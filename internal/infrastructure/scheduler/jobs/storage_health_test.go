package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confession-hub/confession-bot/internal/infrastructure/persistence/postgres"
)

type fakeDB struct {
	status *postgres.HealthStatus
	err    error
}

func (f *fakeDB) Health(_ context.Context) (*postgres.HealthStatus, error) {
	return f.status, f.err
}

type fakeCachePing struct {
	err   error
	calls int
}

func (f *fakeCachePing) Ping(_ context.Context) error {
	f.calls++
	return f.err
}

func TestStorageHealthJob_Run(t *testing.T) {
	db := &fakeDB{status: &postgres.HealthStatus{Healthy: true, TotalConns: 4}}
	cache := &fakeCachePing{}
	job := NewStorageHealthJob(db, cache, nil)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, cache.calls)
}

func TestStorageHealthJob_UnhealthyDatabaseFailsRun(t *testing.T) {
	db := &fakeDB{status: &postgres.HealthStatus{Healthy: false, Error: "pool exhausted"}}
	job := NewStorageHealthJob(db, nil, nil)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool exhausted")
}

func TestStorageHealthJob_HealthErrorPropagates(t *testing.T) {
	db := &fakeDB{err: errors.New("connection closed")}
	job := NewStorageHealthJob(db, nil, nil)

	assert.Error(t, job.Run(context.Background()))
}

func TestStorageHealthJob_CacheFailureDoesNotFailRun(t *testing.T) {
	db := &fakeDB{status: &postgres.HealthStatus{Healthy: true}}
	cache := &fakeCachePing{err: errors.New("redis down")}
	job := NewStorageHealthJob(db, cache, nil)

	assert.NoError(t, job.Run(context.Background()))
}

func TestStorageHealthJob_Name(t *testing.T) {
	job := NewStorageHealthJob(&fakeDB{}, nil, nil)
	assert.Equal(t, "storage_health", job.Name())
}
