package main

import (
	"context"
	"time"

	"github.com/amirrezaask/randomset/database"
	"github.com/amirrezaask/randomset/env"
	"github.com/amirrezaask/randomset/errors"
	"github.com/amirrezaask/randomset/snapshot"
	"github.com/amirrezaask/randomset/vault"
)

const (
	backendMemory = "memory"
	backendRedis  = "redis"
	backendSQLite = "sqlite"
	backendMySQL  = "mysql"
)

type config struct {
	Backend   string
	Listen    string
	Namespace string
	Seed      uint64

	LogLevel          string
	SentryDSN         string
	SentryEnvironment string
	Trace             bool

	JWTSecret string

	Redis    database.RedisConfig
	RedisKey string

	SQLDSN     string
	SQLMaxOpen int

	AMQPURI      string
	AMQPExchange string

	Minio        snapshot.MinioConfig
	SnapshotName string

	ConnectRetries int
	ConnectBackoff time.Duration

	Vault       vault.Config
	VaultMount  string
	VaultPath   string
	ShutdownTTL time.Duration
}

func loadConfig() config {
	return config{
		Backend:   env.GetEnvDefault("RANDOMSET_BACKEND", backendMemory),
		Listen:    env.GetEnvDefault("RANDOMSET_LISTEN", ":8080"),
		Namespace: env.GetEnvDefault("RANDOMSET_NAMESPACE", "default"),
		Seed:      uint64(env.GetEnvInt("RANDOMSET_SEED", 0)),

		LogLevel:          env.GetEnvDefault("RANDOMSET_LOG_LEVEL", "info"),
		SentryDSN:         env.GetEnvDefault("RANDOMSET_SENTRY_DSN", ""),
		SentryEnvironment: env.GetEnvDefault("RANDOMSET_SENTRY_ENVIRONMENT", ""),
		Trace:             env.GetEnvBool("RANDOMSET_TRACE", false),

		JWTSecret: env.GetEnvDefault("RANDOMSET_JWT_SECRET", ""),

		Redis: database.RedisConfig{
			Host:     env.GetEnvDefault("RANDOMSET_REDIS_HOST", "localhost"),
			Port:     env.GetEnvInt("RANDOMSET_REDIS_PORT", 6379),
			Username: env.GetEnvDefault("RANDOMSET_REDIS_USERNAME", ""),
			Password: env.GetEnvDefault("RANDOMSET_REDIS_PASSWORD", ""),
			DB:       env.GetEnvInt("RANDOMSET_REDIS_DB", 0),
		},
		RedisKey: env.GetEnvDefault("RANDOMSET_REDIS_KEY", "randomset"),

		SQLDSN:     env.GetEnvDefault("RANDOMSET_SQL_DSN", "file:randomset.db?cache=shared"),
		SQLMaxOpen: env.GetEnvInt("RANDOMSET_SQL_MAX_OPEN", 1),

		AMQPURI:      env.GetEnvDefault("RANDOMSET_AMQP_URI", ""),
		AMQPExchange: env.GetEnvDefault("RANDOMSET_AMQP_EXCHANGE", "randomset"),

		Minio: snapshot.MinioConfig{
			Endpoint:  env.GetEnvDefault("RANDOMSET_MINIO_ENDPOINT", ""),
			AccessKey: env.GetEnvDefault("RANDOMSET_MINIO_ACCESS_KEY", ""),
			SecretKey: env.GetEnvDefault("RANDOMSET_MINIO_SECRET_KEY", ""),
			Bucket:    env.GetEnvDefault("RANDOMSET_MINIO_BUCKET", "randomset"),
			Secure:    env.GetEnvBool("RANDOMSET_MINIO_SECURE", false),
		},
		SnapshotName: env.GetEnvDefault("RANDOMSET_SNAPSHOT_NAME", ""),

		ConnectRetries: env.GetEnvInt("RANDOMSET_CONNECT_RETRIES", 5),
		ConnectBackoff: time.Duration(env.GetEnvInt("RANDOMSET_CONNECT_BACKOFF_MS", 1000)) * time.Millisecond,

		Vault: vault.Config{
			Address:  env.GetEnvDefault("VAULT_ADDR", ""),
			Token:    env.GetEnvDefault("VAULT_TOKEN", ""),
			RoleID:   env.GetEnvDefault("VAULT_ROLE_ID", ""),
			SecretID: env.GetEnvDefault("VAULT_SECRET_ID", ""),
		},
		VaultMount:  env.GetEnvDefault("VAULT_SECRET_MOUNT", "secret"),
		VaultPath:   env.GetEnvDefault("VAULT_SECRET_PATH", "randomset"),
		ShutdownTTL: time.Duration(env.GetEnvInt("RANDOMSET_SHUTDOWN_TIMEOUT_MS", 5000)) * time.Millisecond,
	}
}

func (c *config) snapshotName() string {
	if c.SnapshotName != "" {
		return c.SnapshotName
	}
	return c.Namespace + ".json"
}

// overlayVaultSecrets replaces credentials with the ones stored in Vault. It is
// a no-op when VAULT_ADDR is not set.
func (c *config) overlayVaultSecrets(ctx context.Context) error {
	if c.Vault.Address == "" {
		return nil
	}
	v, err := vault.NewClient(ctx, c.Vault)
	if err != nil {
		return err
	}
	secrets, err := v.GetSecrets(ctx, c.VaultMount, c.VaultPath)
	if err != nil {
		return errors.Wrap(err, "cannot load configuration secrets")
	}
	vault.Overlay(secrets, map[string]*string{
		"redis_password": &c.Redis.Password,
		"sql_dsn":        &c.SQLDSN,
		"jwt_secret":     &c.JWTSecret,
		"sentry_dsn":     &c.SentryDSN,
		"amqp_uri":       &c.AMQPURI,
		"minio_secret":   &c.Minio.SecretKey,
	})

	return nil
}
