package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alekLukanen/errs"
)

// EnvSecretStore reads secrets from environment variables named prefix + upper case secret name.
type EnvSecretStore struct {
	prefix string
	lookup func(string) (string, bool)
}

func NewEnvSecretStore(prefix string) *EnvSecretStore {
	return &EnvSecretStore{
		prefix: prefix,
		lookup: os.LookupEnv,
	}
}

func (obj *EnvSecretStore) VariableName(name string) string {
	return obj.prefix + strings.ToUpper(name)
}

func (obj *EnvSecretStore) GetSecret(ctx context.Context, name string) (string, error) {
	variable := obj.VariableName(name)
	value, ok := obj.lookup(variable)
	if !ok {
		return "", errs.NewStackError(fmt.Errorf("%w| %s (env %s)", ErrSecretNotFound, name, variable))
	}
	return value, nil
}
