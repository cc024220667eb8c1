// Package vault reads configuration secrets from a HashiCorp Vault KV v2 mount.
package vault

import (
	"context"

	"github.com/amirrezaask/randomset/errors"

	vault "github.com/hashicorp/vault/api"
	auth "github.com/hashicorp/vault/api/auth/approle"
)

type Config struct {
	Address string
	// Token is used as is when set, otherwise RoleID and SecretID log in
	// through AppRole.
	Token    string
	RoleID   string
	SecretID string
}

type Service struct {
	Client *vault.Client
}

func NewClient(ctx context.Context, c Config) (*Service, error) {
	client, err := vault.NewClient(&vault.Config{
		Address: c.Address,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create vault client")
	}

	if c.Token != "" {
		client.SetToken(c.Token)
		return &Service{Client: client}, nil
	}

	appRoleAuth, err := auth.NewAppRoleAuth(
		c.RoleID,
		&auth.SecretID{FromString: c.SecretID},
	)
	if err != nil {
		return nil, errors.Wrap(err, "unable to initialize approle auth method")
	}

	authInfo, err := client.Auth().Login(ctx, appRoleAuth)
	if err != nil {
		return nil, errors.Wrap(err, "unable to login to vault with approle")
	}
	if authInfo == nil {
		return nil, errors.New("no auth info was returned after login")
	}

	return &Service{Client: client}, nil
}

// GetSecrets reads the secret at path under the KV v2 mount. Values must be
// strings.
func (v *Service) GetSecrets(ctx context.Context, mount string, path string) (map[string]string, error) {
	secretsData, err := v.Client.KVv2(mount).Get(ctx, path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read secrets at %s/%s", mount, path)
	}

	secrets := make(map[string]string, len(secretsData.Data))
	for key, value := range secretsData.Data {
		s, ok := value.(string)
		if !ok {
			return nil, errors.Newf("secret %s at %s/%s is %T, not a string", key, mount, path, value)
		}
		secrets[key] = s
	}

	return secrets, nil
}

// Overlay copies secrets into the fields whose names they carry. Keys without a
// matching field are ignored, so one secret can serve several binaries.
func Overlay(secrets map[string]string, fields map[string]*string) {
	for key, target := range fields {
		if v, ok := secrets[key]; ok && v != "" {
			*target = v
		}
	}
}
