package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alekLukanen/errs"

	"github.com/alekLukanen/ecdsETL/config"
	"github.com/alekLukanen/ecdsETL/secrets"
	"github.com/alekLukanen/ecdsETL/storage"
)

// NewSecretStore returns the configured secret store and a func releasing it.
func NewSecretStore(logger *slog.Logger, cfg config.SecretsConfig) (secrets.ISecretStore, func(), error) {
	switch cfg.Store {
	case config.SecretsStoreDapr:
		store, err := secrets.NewDaprSecretStore(logger, cfg.DaprStore)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.SecretsStoreEnv, "":
		return secrets.NewEnvSecretStore(cfg.EnvPrefix), func() {}, nil
	default:
		return nil, nil, errs.NewStackError(fmt.Errorf("%w| %s", secrets.ErrUnsupportedSecretsStore, cfg.Store))
	}
}

/*
* The storage account name and key are the static access key pair of the
* object store. The "memory" endpoint keeps every object in process.
 */
func NewObjectStorage(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.ObjectStorageConfig,
	pipelineSecrets secrets.PipelineSecrets,
) (storage.IObjectStorage, error) {
	if cfg.Endpoint == config.ObjectStorageEndpointMemory {
		logger.Warn("using in memory object storage, nothing will be persisted")
		return storage.NewMemoryObjectStorage(), nil
	}

	objectStorage, err := storage.NewObjectStorage(
		ctx,
		logger,
		*storage.NewObjectStorageOptionsFromStaticCredentials(
			cfg.Endpoint,
			cfg.Region,
			pipelineSecrets.StorageAccountName,
			pipelineSecrets.StorageAccountKey,
			cfg.UsePathStyle,
		),
	)
	if err != nil {
		return nil, errs.Wrap(err, fmt.Errorf("failed creating object storage client"))
	}
	return objectStorage, nil
}
