package aws

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"golang.org/x/sync/singleflight"
)

// SecretsManagerAPI is the one Secrets Manager call the service makes.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsClient resolves secrets under a fixed name prefix (e.g. "backoffice/")
// and keeps them for the process lifetime. Concurrent lookups of the same
// name share one API call.
type SecretsClient struct {
	api    SecretsManagerAPI
	prefix string

	mu     sync.RWMutex
	values map[string]string
	group  singleflight.Group
}

func NewSecretsClient(cfg sdkaws.Config, prefix string) *SecretsClient {
	return NewSecretsClientWithAPI(secretsmanager.NewFromConfig(cfg), prefix)
}

func NewSecretsClientWithAPI(api SecretsManagerAPI, prefix string) *SecretsClient {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &SecretsClient{api: api, prefix: prefix, values: make(map[string]string)}
}

func (s *SecretsClient) GetSecret(ctx context.Context, name string) (string, error) {
	id := s.prefix + name

	s.mu.RLock()
	v, ok := s.values[id]
	s.mu.RUnlock()
	if ok {
		return v, nil
	}

	res, err, _ := s.group.Do(id, func() (interface{}, error) {
		out, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: sdkaws.String(id)})
		if err != nil {
			return "", fmt.Errorf("secret %s: %w", id, err)
		}
		if out.SecretString == nil {
			return "", fmt.Errorf("secret %s is binary, expected a string", id)
		}
		s.mu.Lock()
		s.values[id] = *out.SecretString
		s.mu.Unlock()
		return *out.SecretString, nil
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}
