package secrets

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alekLukanen/errs"
	dapr "github.com/dapr/go-sdk/client"
)

type daprSecretClient interface {
	GetSecret(ctx context.Context, storeName, key string, meta map[string]string) (map[string]string, error)
}

// DaprSecretStore reads secrets from a dapr secret store component through the sidecar.
type DaprSecretStore struct {
	logger    *slog.Logger
	client    daprSecretClient
	storeName string
	close     func()
}

func NewDaprSecretStore(logger *slog.Logger, storeName string) (*DaprSecretStore, error) {
	client, err := dapr.NewClient()
	if err != nil {
		return nil, errs.Wrap(err, fmt.Errorf("failed connecting to the dapr sidecar"))
	}
	return &DaprSecretStore{
		logger:    logger,
		client:    client,
		storeName: storeName,
		close:     client.Close,
	}, nil
}

func (obj *DaprSecretStore) GetSecret(ctx context.Context, name string) (string, error) {
	data, err := obj.client.GetSecret(ctx, obj.storeName, name, nil)
	if err != nil {
		return "", errs.NewStackError(fmt.Errorf("%w| %s (store %s): %w", ErrSecretNotFound, name, obj.storeName, err))
	}
	value, ok := data[name]
	if !ok {
		return "", errs.NewStackError(fmt.Errorf("%w| %s (store %s)", ErrSecretNotFound, name, obj.storeName))
	}
	return value, nil
}

func (obj *DaprSecretStore) Close() {
	if obj.close != nil {
		obj.close()
	}
}
