package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/zeebo/xxh3"

	"github.com/alekLukanen/ecdsETL/storage"
)

type MockFetcher struct {
	mock.Mock
}

func (obj *MockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	ret := obj.Called(ctx, url)
	return ret.Get(0).([]byte), ret.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(
		slog.NewJSONHandler(
			os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug},
		),
	)
}

func TestIngesterIngest(t *testing.T) {
	ctx := context.Background()
	data := []byte("MEASURE_VALUE,REPORTING_PERIOD\n1,2023-04\n")

	fetcher := new(MockFetcher)
	fetcher.On("Fetch", ctx, "https://example.org/ae.csv").Return(data, nil)

	objectStorage := storage.NewMemoryObjectStorage()
	assert.Nil(t, objectStorage.Upload(ctx, "raw", "ae.csv", []byte("old copy")))

	ingester := NewIngester(testLogger(), fetcher, objectStorage, IngesterOptions{
		SourceURL: "https://example.org/ae.csv",
		Bucket:    "raw",
		Key:       "ae.csv",
	})

	result, err := ingester.Ingest(ctx)
	if !assert.Nil(t, err) {
		return
	}
	assert.Equal(t, int64(len(data)), result.BytesFetched)
	assert.Equal(t, fmt.Sprintf("%016x", xxh3.Hash(data)), result.Checksum)

	stored, err := objectStorage.Download(ctx, "raw", "ae.csv")
	if !assert.Nil(t, err) {
		return
	}
	assert.Equal(t, data, stored)

	// ingesting twice leaves a single identical object
	_, err = ingester.Ingest(ctx)
	assert.Nil(t, err)
	keys, err := objectStorage.ListObjects(ctx, "raw", "")
	assert.Nil(t, err)
	assert.Equal(t, []string{"ae.csv"}, keys)
	fetcher.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestIngesterIngestErrors(t *testing.T) {
	ctx := context.Background()
	fetchErr := errors.New("connection refused")

	testCases := []struct {
		caseName  string
		fetchData []byte
		fetchErr  error
		expErr    error
	}{
		{
			caseName:  "fetch-failure",
			fetchData: []byte{},
			fetchErr:  fetchErr,
			expErr:    fetchErr,
		},
		{
			caseName:  "empty-body",
			fetchData: []byte{},
			expErr:    ErrEmptySource,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.caseName, func(t *testing.T) {
			fetcher := new(MockFetcher)
			fetcher.On("Fetch", ctx, "https://example.org/ae.csv").Return(tc.fetchData, tc.fetchErr)
			objectStorage := storage.NewMemoryObjectStorage()

			ingester := NewIngester(testLogger(), fetcher, objectStorage, IngesterOptions{
				SourceURL: "https://example.org/ae.csv",
				Bucket:    "raw",
				Key:       "ae.csv",
			})
			_, err := ingester.Ingest(ctx)
			if !errors.Is(err, tc.expErr) {
				t.Errorf("expected error '%s' but received '%s'", tc.expErr, err)
			}

			keys, err := objectStorage.ListObjects(ctx, "raw", "")
			assert.Nil(t, err)
			assert.Len(t, keys, 0)
		})
	}
}
