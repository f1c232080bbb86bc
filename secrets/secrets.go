package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alekLukanen/errs"
)

const (
	SecretStorageAccountKey    = "storage_account_key"
	SecretStorageAccountName   = "storage_account_name"
	SecretRawDataContainer     = "raw_data_container"
	SecretCleanedDataContainer = "cleaned_data_container"
)

type ISecretStore interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// PipelineSecrets are the values every job needs before it touches storage.
type PipelineSecrets struct {
	StorageAccountKey    string
	StorageAccountName   string
	RawDataContainer     string
	CleanedDataContainer string
}

/*
* Reads all four pipeline secrets. A missing or empty secret is fatal; every
* missing name is reported in the one returned error.
 */
func LoadPipelineSecrets(ctx context.Context, logger *slog.Logger, store ISecretStore) (PipelineSecrets, error) {
	values := make(map[string]string, 4)
	var missing error
	for _, name := range []string{
		SecretStorageAccountKey,
		SecretStorageAccountName,
		SecretRawDataContainer,
		SecretCleanedDataContainer,
	} {
		value, err := store.GetSecret(ctx, name)
		if err != nil {
			missing = errors.Join(missing, err)
			continue
		}
		if value == "" {
			missing = errors.Join(missing, fmt.Errorf("%w| %s is empty", ErrSecretNotFound, name))
			continue
		}
		values[name] = value
	}
	if missing != nil {
		return PipelineSecrets{}, errs.NewStackError(missing)
	}

	logger.Info("loaded pipeline secrets", slog.Int("count", len(values)))
	return PipelineSecrets{
		StorageAccountKey:    values[SecretStorageAccountKey],
		StorageAccountName:   values[SecretStorageAccountName],
		RawDataContainer:     values[SecretRawDataContainer],
		CleanedDataContainer: values[SecretCleanedDataContainer],
	}, nil
}
