package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alekLukanen/errs"
	"github.com/go-redsync/redsync/v4"
	redsyncredis "github.com/go-redsync/redsync/v4/redis"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"

	"github.com/alekLukanen/ecdsETL/elements"
)

type ILock interface {
	TryLockContext(context.Context) error
	UnlockContext(context.Context) (bool, error)
	Name() string
}

type IKeyStorage interface {
	AcquireRunLock(context.Context, string) (ILock, error)
	ReleaseRunLock(context.Context, ILock) (bool, error)

	PublishRunResult(context.Context, elements.RunResult) error
	GetRunResult(context.Context, string) (*elements.RunResult, error)
}

type KeyStorageOptions struct {
	Address   string
	Password  string
	KeyPrefix string

	LockTTL   time.Duration
	ResultTTL time.Duration
}

type KeyStorage struct {
	logger *slog.Logger
	client *goredislib.Client
	pool   redsyncredis.Pool
	sync   *redsync.Redsync

	KeyPrefix string
	lockTTL   time.Duration
	resultTTL time.Duration
}

func NewKeyStorage(
	ctx context.Context,
	logger *slog.Logger,
	options KeyStorageOptions,
) (*KeyStorage, error) {
	client := goredislib.NewClient(&goredislib.Options{
		Addr:     options.Address,
		Password: options.Password,
		DB:       0,
	})

	redisPool := goredis.NewPool(client)
	mutexSync := redsync.New(redisPool)

	lockTTL := options.LockTTL
	if lockTTL <= 0 {
		lockTTL = time.Hour
	}

	keyStorage := KeyStorage{
		logger:    logger,
		client:    client,
		pool:      redisPool,
		sync:      mutexSync,
		KeyPrefix: options.KeyPrefix,
		lockTTL:   lockTTL,
		resultTTL: options.ResultTTL,
	}
	return &keyStorage, nil
}

func (obj *KeyStorage) Close() error {
	return obj.client.Close()
}

func (obj *KeyStorage) Key(key string) string {
	return fmt.Sprintf("%s/%s", obj.KeyPrefix, key)
}

func (obj *KeyStorage) RunEventsChannel() string {
	return obj.Key("run-events")
}

func (obj *KeyStorage) DerCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	derivedCtx, cancelFunc := context.WithTimeout(ctx, time.Second*15)
	return derivedCtx, cancelFunc
}

func (obj *KeyStorage) AcquireLock(ctx context.Context, key string, duration time.Duration) (ILock, error) {
	mutex := obj.sync.NewMutex(obj.Key(key), redsync.WithExpiry(duration), redsync.WithTries(1))
	if err := mutex.TryLockContext(ctx); err != nil {
		return nil, err
	}
	return mutex, nil
}

func (obj *KeyStorage) ReleaseLock(ctx context.Context, lock ILock) (bool, error) {
	ok, err := lock.UnlockContext(ctx)
	return ok, err
}

/*
* Claims the run lock for a destination. A lock held by another run is
* reported as ErrRunInProgress. The lock expires after the configured ttl so
* a crashed run never blocks the destination for good.
 */
func (obj *KeyStorage) AcquireRunLock(ctx context.Context, destination string) (ILock, error) {
	ctx, cancelFunc := obj.DerCtx(ctx)
	defer cancelFunc()

	lock, err := obj.AcquireLock(ctx, fmt.Sprintf("run-lock/%s", destination), obj.lockTTL)
	if err != nil {
		var takenErr *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &takenErr) {
			return nil, errs.NewStackError(fmt.Errorf("%w| destination: %s", ErrRunInProgress, destination))
		}
		return nil, errs.Wrap(err, fmt.Errorf("failed acquiring run lock for %s", destination))
	}
	obj.logger.Info("acquired run lock", slog.String("lock", lock.Name()))
	return lock, nil
}

func (obj *KeyStorage) ReleaseRunLock(ctx context.Context, lock ILock) (bool, error) {
	ctx, cancelFunc := obj.DerCtx(ctx)
	defer cancelFunc()
	return obj.ReleaseLock(ctx, lock)
}

// PublishRunResult stores the latest result of a stage and announces it on the run events channel.
func (obj *KeyStorage) PublishRunResult(ctx context.Context, result elements.RunResult) error {
	data, err := result.ToBytes()
	if err != nil {
		return errs.Wrap(err)
	}

	ctx, cancelFunc := obj.DerCtx(ctx)
	defer cancelFunc()

	key := obj.Key(fmt.Sprintf("run-result/%s", result.Stage))
	if err := obj.client.Set(ctx, key, data, obj.resultTTL).Err(); err != nil {
		return errs.Wrap(err, fmt.Errorf("failed storing run result %s", key))
	}
	if err := obj.client.Publish(ctx, obj.RunEventsChannel(), data).Err(); err != nil {
		return errs.Wrap(err, fmt.Errorf("failed publishing run result %s", key))
	}
	return nil
}

func (obj *KeyStorage) GetRunResult(ctx context.Context, stage string) (*elements.RunResult, error) {
	ctx, cancelFunc := obj.DerCtx(ctx)
	defer cancelFunc()

	key := obj.Key(fmt.Sprintf("run-result/%s", stage))
	data, err := obj.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredislib.Nil) {
		return nil, errs.NewStackError(fmt.Errorf("%w| key: %s", ErrRunResultNotFound, key))
	} else if err != nil {
		return nil, errs.Wrap(err)
	}
	result, err := elements.NewRunResultFromBytes(data)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return result, nil
}
