package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"

	"github.com/alekLukanen/ecdsETL/elements"
)

func newTestKeyStorage(t *testing.T) (*miniredis.Miniredis, *KeyStorage) {
	t.Helper()
	mr := miniredis.RunT(t)
	keyStorage, err := NewKeyStorage(context.Background(), testLogger(), KeyStorageOptions{
		Address:   mr.Addr(),
		KeyPrefix: "ecds",
		LockTTL:   time.Minute,
		ResultTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewKeyStorage failed: %v", err)
	}
	t.Cleanup(func() { keyStorage.Close() })
	return mr, keyStorage
}

func TestKeyStorageRunLock(t *testing.T) {
	ctx := context.Background()
	_, keyStorage := newTestKeyStorage(t)

	lock, err := keyStorage.AcquireRunLock(ctx, "cleaned/ecds")
	if !assert.Nil(t, err) {
		return
	}
	assert.Equal(t, "ecds/run-lock/cleaned/ecds", lock.Name())

	_, err = keyStorage.AcquireRunLock(ctx, "cleaned/ecds")
	assert.ErrorIs(t, err, ErrRunInProgress)

	otherLock, err := keyStorage.AcquireRunLock(ctx, "cleaned/other")
	if assert.Nil(t, err) {
		_, err = keyStorage.ReleaseRunLock(ctx, otherLock)
		assert.Nil(t, err)
	}

	ok, err := keyStorage.ReleaseRunLock(ctx, lock)
	assert.Nil(t, err)
	assert.True(t, ok)

	lock, err = keyStorage.AcquireRunLock(ctx, "cleaned/ecds")
	if assert.Nil(t, err) {
		_, err = keyStorage.ReleaseRunLock(ctx, lock)
		assert.Nil(t, err)
	}
}

func TestKeyStorageRunResult(t *testing.T) {
	ctx := context.Background()
	mr, keyStorage := newTestKeyStorage(t)

	_, err := keyStorage.GetRunResult(ctx, elements.StageClean)
	assert.ErrorIs(t, err, ErrRunResultNotFound)

	sub := keyStorage.client.Subscribe(ctx, keyStorage.RunEventsChannel())
	defer sub.Close()
	if _, err := sub.Receive(ctx); !assert.Nil(t, err) {
		return
	}

	result := elements.RunResult{
		RunId:       "run-1",
		Stage:       elements.StageClean,
		Status:      elements.RunStatusSucceeded,
		StartedAt:   time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC),
		FinishedAt:  time.Date(2024, time.March, 1, 10, 1, 0, 0, time.UTC),
		RowsRead:    10,
		RowsWritten: 8,
		RowsDropped: 2,
		Partitions:  map[string]int64{"year=2023": 8},
	}
	if !assert.Nil(t, keyStorage.PublishRunResult(ctx, result)) {
		return
	}

	stored, err := keyStorage.GetRunResult(ctx, elements.StageClean)
	if !assert.Nil(t, err) {
		return
	}
	assert.Equal(t, result, *stored)
	assert.Equal(t, time.Hour, mr.TTL("ecds/run-result/clean"))

	select {
	case msg := <-sub.Channel():
		published, err := elements.NewRunResultFromBytes([]byte(msg.Payload))
		if assert.Nil(t, err) {
			assert.Equal(t, "run-1", published.RunId)
		}
	case <-time.After(2 * time.Second):
		t.Error("expected a run event to be published")
	}
}
