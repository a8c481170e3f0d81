package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/movement-pass/public-api/internal/adapters/aws/s3presign"
	"github.com/movement-pass/public-api/internal/adapters/aws/ssmparams"
	ddb "github.com/movement-pass/public-api/internal/adapters/dynamodb"
	"github.com/movement-pass/public-api/internal/adapters/httpapi"
	memblob "github.com/movement-pass/public-api/internal/adapters/memory/blobstore"
	memdocstore "github.com/movement-pass/public-api/internal/adapters/memory/docstore"
	memidempotency "github.com/movement-pass/public-api/internal/adapters/memory/idempotency"
	memparams "github.com/movement-pass/public-api/internal/adapters/memory/paramsource"
	postgres "github.com/movement-pass/public-api/internal/adapters/postgres"
	pgdocstore "github.com/movement-pass/public-api/internal/adapters/postgres/docstore"
	pgidempotency "github.com/movement-pass/public-api/internal/adapters/postgres/idempotency"
	redisidempotency "github.com/movement-pass/public-api/internal/adapters/redis/idempotency"
	"github.com/movement-pass/public-api/internal/app"
	"github.com/movement-pass/public-api/internal/app/identity"
	"github.com/movement-pass/public-api/internal/app/passes"
	"github.com/movement-pass/public-api/internal/app/uploads"
	"github.com/movement-pass/public-api/internal/platform/auth/tokenissuer"
	"github.com/movement-pass/public-api/internal/platform/awsconfig"
	platformclock "github.com/movement-pass/public-api/internal/platform/clock"
	"github.com/movement-pass/public-api/internal/platform/config"
	"github.com/movement-pass/public-api/internal/platform/configcache"
	"github.com/movement-pass/public-api/internal/platform/logger"
	"github.com/movement-pass/public-api/internal/platform/metrics"
	platformredis "github.com/movement-pass/public-api/internal/platform/redis"
	"github.com/movement-pass/public-api/internal/ports/out/applicantrepo"
	"github.com/movement-pass/public-api/internal/ports/out/blobstore"
	idempotencyport "github.com/movement-pass/public-api/internal/ports/out/idempotency"
	"github.com/movement-pass/public-api/internal/ports/out/paramsource"
	"github.com/movement-pass/public-api/internal/ports/out/passrepo"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	log := logger.Setup(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("api stopped", "error", err)
		os.Exit(1)
	}
}

type stores struct {
	applicants applicantrepo.Repository
	passes     passrepo.Repository
	idem       idempotencyport.Store
	cleanup    []func()
}

func (s *stores) close() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	var awsCfg aws.Config
	if cfg.AWS.Region != "" {
		c, err := awsconfig.Load(ctx, cfg.AWS.Region)
		if err != nil {
			return err
		}
		awsCfg = c
	}

	var source paramsource.Source
	switch cfg.Params.Source {
	case "ssm":
		source = ssmparams.NewFromConfig(awsCfg)
	default:
		s, err := memparams.LoadFile(cfg.Params.File, cfg.Params.RootKey)
		if err != nil {
			return err
		}
		source = s
	}
	settings := configcache.New(source, cfg.Params.RootKey)

	st, err := openStores(ctx, cfg, awsCfg, settings)
	if err != nil {
		return err
	}
	defer st.close()

	var presigner blobstore.Presigner
	switch cfg.Storage.Blob {
	case "s3":
		presigner = s3presign.NewFromConfig(awsCfg)
	default:
		presigner = memblob.NewPresigner("")
	}

	clk := platformclock.NewSystemClock()
	tokens := tokenissuer.New(settings, clk)

	dispatcher := app.NewDispatcher(
		identity.NewService(st.applicants, tokens, clk),
		passes.NewService(st.passes, st.applicants, clk),
		uploads.NewService(settings, presigner),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	api := httpapi.NewServer(dispatcher, st.idem)
	api.Metrics = metrics.New(reg)
	api.Log = log

	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		Version:        cfg.Version(),
		AllowedOrigins: cfg.Origins(),
		AuthMiddleware: httpapi.NewAuthMiddleware(tokens, log),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening",
			"addr", srv.Addr,
			"version", cfg.Version(),
			"storage", cfg.Storage.Backend,
			"params", cfg.Params.Source,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStores(ctx context.Context, cfg config.Config, awsCfg aws.Config, settings *configcache.Cache) (*stores, error) {
	st := &stores{}

	switch cfg.Storage.Backend {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Postgres.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			return nil, fmt.Errorf("invalid postgres config: %w", err)
		}
		st.cleanup = append(st.cleanup, pool.Close)
		if err := postgres.Migrate(ctx, pool); err != nil {
			st.close()
			return nil, err
		}
		st.applicants = pgdocstore.NewApplicantRepo(pool)
		st.passes = pgdocstore.NewPassRepo(pool)
		if cfg.Storage.Idempotency == "postgres" {
			st.idem = pgidempotency.NewStore(pool)
		}
	case "dynamodb":
		client := ddb.NewClient(awsCfg, cfg.AWS.DynamoDBEndpoint)
		if cfg.AWS.DynamoDBEndpoint != "" {
			values, err := settings.Get(ctx)
			if err != nil {
				return nil, err
			}
			applicantsTable, err := values.String(configcache.KeyApplicantsTable)
			if err != nil {
				return nil, err
			}
			passesTable, err := values.String(configcache.KeyPassesTable)
			if err != nil {
				return nil, err
			}
			if err := ddb.EnsureTables(ctx, client, applicantsTable, passesTable); err != nil {
				return nil, err
			}
		}
		st.applicants = ddb.NewApplicantRepo(client, settings)
		st.passes = ddb.NewPassRepo(client, settings)
	default:
		docs := memdocstore.NewStore()
		st.applicants = docs.Applicants()
		st.passes = docs.Passes()
	}

	if st.idem != nil {
		return st, nil
	}
	switch cfg.Storage.Idempotency {
	case "redis":
		client, err := platformredis.New(ctx, cfg.Redis.URL)
		if err != nil {
			st.close()
			return nil, err
		}
		st.cleanup = append(st.cleanup, func() { _ = client.Close() })
		st.idem = redisidempotency.NewStore(client)
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Postgres.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			st.close()
			return nil, fmt.Errorf("invalid postgres config: %w", err)
		}
		st.cleanup = append(st.cleanup, pool.Close)
		if err := postgres.Migrate(ctx, pool); err != nil {
			st.close()
			return nil, err
		}
		st.idem = pgidempotency.NewStore(pool)
	default:
		st.idem = memidempotency.NewStore(memidempotency.WithTTL(redisidempotency.DefaultTTL, nil))
	}
	return st, nil
}
