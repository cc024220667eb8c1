package main

import (
	"context"
	"io"
	"log/slog"
	stdhttp "net/http"
	"os"
	"time"

	"github.com/amirrezaask/randomset/api"
	"github.com/amirrezaask/randomset/database"
	"github.com/amirrezaask/randomset/errors"
	"github.com/amirrezaask/randomset/events"
	"github.com/amirrezaask/randomset/http"
	"github.com/amirrezaask/randomset/logging"
	"github.com/amirrezaask/randomset/randomset"
	"github.com/amirrezaask/randomset/retry"
	"github.com/amirrezaask/randomset/snapshot"
	"github.com/amirrezaask/randomset/store"
	"github.com/amirrezaask/randomset/tracing"

	"github.com/getsentry/sentry-go"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const metricsNamespace = "randomset"

func serve(ctx context.Context, c config) error {
	if err := c.overlayVaultSecrets(ctx); err != nil {
		return err
	}

	if err := logging.Init(logging.Config{
		LogLevel: logging.ParseLevel(c.LogLevel),
		Output:   os.Stdout,
		SentryConfig: sentry.ClientOptions{
			Dsn:         c.SentryDSN,
			Environment: c.SentryEnvironment,
		},
	}); err != nil {
		return err
	}
	defer sentry.Flush(2 * time.Second)

	traceOutput := io.Discard
	if c.Trace {
		traceOutput = os.Stderr
	}
	shutdownTracing, err := tracing.Init(traceOutput)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s, closeStore, err := openStore(ctx, c, reg)
	if err != nil {
		return err
	}
	defer closeStore()

	s = store.Instrument(s, store.InstrumentOptions{
		Name:       c.Backend,
		Namespace:  metricsNamespace,
		Registerer: reg,
	})

	if c.Minio.Endpoint != "" {
		bucket, err := snapshot.NewMinio(ctx, c.Minio)
		if err != nil {
			return err
		}
		name := c.snapshotName()
		if err := restoreSnapshot(ctx, s, bucket, name); err != nil {
			return err
		}
		defer func() {
			n, err := snapshot.Save(context.Background(), s, bucket, name, c.Namespace)
			if err != nil {
				slog.Error("cannot save snapshot", "name", name, "err", err)
				return
			}
			slog.Info("saved snapshot", "name", name, "elements", n)
		}()
	}

	if c.AMQPURI != "" {
		var pub *events.RabbitPublisher
		err := retry.Do(ctx, func(ctx context.Context) (err error) {
			pub, err = events.NewRabbitPublisher(events.RabbitConfig{
				URI:              c.AMQPURI,
				Exchange:         c.AMQPExchange,
				MetricsNamespace: metricsNamespace,
				Registerer:       reg,
			})
			return err
		}, c.ConnectRetries, c.ConnectBackoff)
		if err != nil {
			return err
		}
		defer pub.Close()
		s = events.Publishing(s, pub, c.Namespace)
	}

	handler := newHandler(c, s, reg)
	srv := &stdhttp.Server{
		Addr:              c.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("serving random set", "addr", c.Listen, "backend", c.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server stopped")
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.ShutdownTTL)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "cannot shutdown http server")
	}

	return nil
}

// restoreSnapshot fills an empty store from the named snapshot. A store that
// already has elements is authoritative and is left alone.
func restoreSnapshot(ctx context.Context, s store.Store[string], b snapshot.Blob, name string) error {
	n, err := s.Size(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	snap, err := snapshot.Restore(ctx, s, b, name)
	if errors.Is(err, snapshot.ErrNotFound) {
		slog.Info("no snapshot to restore", "name", name)
		return nil
	}
	if err != nil {
		return err
	}
	slog.Info("restored snapshot", "name", name, "elements", len(snap.Elements), "taken_at", snap.TakenAt)

	return nil
}

func newHandler(c config, s store.Store[string], reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.UseMiddlewares(
		http.RecoverMiddleware,
		http.SentryMiddleware,
		http.PrometheusExporterMiddleware(reg, metricsNamespace),
	)

	var mutating []http.MiddlewareFunc
	if c.JWTSecret != "" {
		mutating = append(mutating, http.JWTBearerAuthenticationMiddleware([]byte(c.JWTSecret)), http.AuthenticatedOnlyMiddleware)
	}
	api.Register(mux, s, mutating...)
	mux.MapPrometheusEndpoint("/metrics", reg)

	return mux
}

func openStore(ctx context.Context, c config, reg prometheus.Registerer) (store.Store[string], func() error, error) {
	var setOpts []randomset.Option
	var sqlOpts store.SQLOptions[string]
	sqlOpts.Namespace = c.Namespace
	if c.Seed != 0 {
		setOpts = append(setOpts, randomset.WithSeed(c.Seed))
		sqlOpts.Source = randomset.NewSource(c.Seed)
	}

	switch c.Backend {
	case backendMemory:
		return store.NewMemory[string](setOpts...), func() error { return nil }, nil

	case backendRedis:
		var client *redis.Client
		err := retry.Do(ctx, func(ctx context.Context) (err error) {
			client, err = database.NewRedis(ctx, c.Redis)
			return err
		}, c.ConnectRetries, c.ConnectBackoff)
		if err != nil {
			return nil, nil, err
		}
		return store.NewRedis[string](client, c.RedisKey+":"+c.Namespace, nil), client.Close, nil

	case backendSQLite, backendMySQL:
		driver := database.SQLite
		if c.Backend == backendMySQL {
			driver = database.MySQL
		}
		var db *database.DB
		err := retry.Do(ctx, func(ctx context.Context) (err error) {
			db, err = database.Open(database.DataSource{
				Driver:                driver,
				Name:                  "randomset",
				ConnectionString:      c.SQLDSN,
				MetricsNamespace:      metricsNamespace,
				MaxOpenConnections:    c.SQLMaxOpen,
				MaxIdleConnections:    c.SQLMaxOpen,
				IdleConnectionTimeout: 5 * time.Minute,
				OpenConnectionTimeout: time.Hour,
				Registerer:            reg,
			})
			return err
		}, c.ConnectRetries, c.ConnectBackoff)
		if err != nil {
			return nil, nil, err
		}
		s, err := store.NewSQL[string](ctx, db, sqlOpts)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return s, db.Close, nil
	}

	return nil, nil, errors.Newf("unknown backend %q, expected one of memory, redis, sqlite, mysql", c.Backend)
}
