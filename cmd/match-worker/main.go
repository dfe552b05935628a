// cmd/match-worker/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"talent-match-workers/internal/common/aws"
	"talent-match-workers/internal/common/camunda"
	"talent-match-workers/internal/common/config"
	"talent-match-workers/internal/common/database"
	"talent-match-workers/internal/common/logger"
	"talent-match-workers/internal/common/observability"
	"talent-match-workers/internal/common/validation"
	"talent-match-workers/internal/matching"
	"talent-match-workers/internal/repository"
	"talent-match-workers/pkg/registry"

	cm "talent-match-workers/internal/workers/matching/calculate-match"
	fbm "talent-match-workers/internal/workers/matching/find-best-matches"
	ntm "talent-match-workers/internal/workers/matching/notify-top-matches"
)

const serviceName = "match-worker"

// backends holds every connection the workers share.
type backends struct {
	zeebe  *camunda.Client
	pg     *database.PostgresClient
	es     *database.ElasticsearchClient
	redis  *database.RedisClient
	email  *aws.SESClient
	sms    *aws.SNSClient
	checks map[string]func(context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": serviceName,
		"version": cfg.App.Version,
	})
	log.Info("starting match worker", map[string]interface{}{"environment": cfg.App.Environment})

	obs, err := observability.New(serviceName)
	if err != nil {
		log.Warn("observability disabled", map[string]interface{}{"error": err})
	}
	if cfg.Tracing.Enabled {
		if err := obs.EnableTracing(serviceName, cfg.Tracing.JaegerEndpoint); err != nil {
			log.Warn("tracing disabled", map[string]interface{}{"error": err})
		} else {
			log.Info("tracing enabled", map[string]interface{}{"endpoint": cfg.Tracing.JaegerEndpoint})
		}
	}

	ctx := context.Background()

	b, err := connect(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("backend initialisation failed", zap.Error(err))
	}
	defer b.close(log)

	reg := registry.DefaultRegistry()
	if cfg.RegistryPath != "" {
		reg, err = registry.LoadRegistry(cfg.RegistryPath)
		if err != nil {
			zapLog.Fatal("activity registry load failed", zap.Error(err), zap.String("path", cfg.RegistryPath))
		}
	}
	validator, err := validation.NewValidator(reg)
	if err != nil {
		zapLog.Fatal("input schema compilation failed", zap.Error(err))
	}

	workers, err := registerWorkers(cfg, b, validator, obs, log)
	if err != nil {
		zapLog.Fatal("worker registration failed", zap.Error(err))
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           healthRouter(b.checks),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("health/metrics server listening", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("health/metrics server failed", map[string]interface{}{"error": err})
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping workers", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Close()
	}
	for _, w := range workers {
		w.AwaitClose()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("health server shutdown failed", map[string]interface{}{"error": err})
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Error("observability shutdown failed", map[string]interface{}{"error": err})
	}
	log.Info("match worker stopped", nil)
}

// connect dials every backend the enabled features need. Elasticsearch and
// redis are optional; postgres and Zeebe are required.
func connect(ctx context.Context, cfg *config.Config, log logger.Logger) (*backends, error) {
	b := &backends{checks: map[string]func(context.Context) error{}}

	err := database.Retry(ctx, log, "Zeebe client initialization", 10, 2*time.Second, func(ctx context.Context) error {
		var err error
		b.zeebe, err = camunda.NewClient(ctx, camunda.ConfigFrom(cfg.Camunda))
		return err
	})
	if err != nil {
		return nil, err
	}
	b.checks["zeebe"] = b.zeebe.HealthCheck
	log.Info("zeebe client connected", map[string]interface{}{"gateway": cfg.Camunda.BrokerAddress})

	err = database.Retry(ctx, log, "PostgreSQL connection", 15, 2*time.Second, func(ctx context.Context) error {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		if err := pg.Ping(ctx); err != nil {
			pg.Close()
			return err
		}
		b.pg = pg
		return nil
	})
	if err != nil {
		b.close(log)
		return nil, err
	}
	b.checks["postgres"] = b.pg.Ping
	log.Info("postgres connected", nil)

	if cfg.Search.Enabled {
		err = database.Retry(ctx, log, "Elasticsearch connection", 15, 2*time.Second, func(ctx context.Context) error {
			es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := es.Ping(ctx); err != nil {
				return err
			}
			b.es = es
			return nil
		})
		if err != nil {
			b.close(log)
			return nil, err
		}
		b.checks["elasticsearch"] = b.es.Ping
		log.Info("elasticsearch connected", map[string]interface{}{"index": b.es.Index})
	}

	if cfg.Cache.Enabled {
		err = database.Retry(ctx, log, "Redis connection", 10, 2*time.Second, func(ctx context.Context) error {
			rc, err := database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			if err := rc.Ping(ctx); err != nil {
				rc.Close()
				return err
			}
			b.redis = rc
			return nil
		})
		if err != nil {
			b.close(log)
			return nil, err
		}
		b.checks["redis"] = b.redis.Ping
		log.Info("redis connected", nil)
	}

	n := cfg.Notifications
	if n.Email.Enabled || n.SMS.Enabled {
		awsCfg, err := aws.LoadConfig(ctx, n.AWS.Region)
		if err != nil {
			b.close(log)
			return nil, err
		}
		if n.Email.Enabled {
			b.email = aws.NewSESClient(awsCfg, n.Email.FromEmail)
		}
		if n.SMS.Enabled {
			b.sms = aws.NewSNSClient(awsCfg, n.SMS.SenderID)
		}
		log.Info("aws notification clients ready", map[string]interface{}{
			"region": n.AWS.Region,
			"email":  n.Email.Enabled,
			"sms":    n.SMS.Enabled,
		})
	}
	return b, nil
}

func (b *backends) close(log logger.Logger) {
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			log.Warn("error closing redis", map[string]interface{}{"error": err})
		}
	}
	if b.pg != nil {
		if err := b.pg.Close(); err != nil {
			log.Warn("error closing postgres", map[string]interface{}{"error": err})
		}
	}
	if b.zeebe != nil {
		if err := b.zeebe.Close(); err != nil {
			log.Warn("error closing zeebe client", map[string]interface{}{"error": err})
		}
	}
}

func registerWorkers(cfg *config.Config, b *backends, validator *validation.Validator, obs *observability.Observability, log logger.Logger) ([]worker.JobWorker, error) {
	engine := matching.NewEngine(
		matching.WithExactPolicy(cfg.Matching),
		matching.WithLogger(log.WithFields(map[string]interface{}{"component": "matching"})),
	)
	store := repository.NewPostgres(b.pg.DB, log)

	var (
		search fbm.Search
		cache  *repository.MatchCache
	)
	if b.es != nil {
		cs := repository.NewCandidateSearch(b.es.Client, b.es.Index, b.es.Timeout)
		ctx, cancel := context.WithTimeout(context.Background(), b.es.Timeout)
		if err := cs.EnsureIndex(ctx); err != nil {
			log.Warn("could not ensure freelancer index", map[string]interface{}{"index": b.es.Index, "error": err})
		}
		cancel()
		search = cs
	}
	if b.redis != nil {
		cache = repository.NewMatchCache(b.redis.Client, cfg.Cache.KeyPrefix, cfg.Cache.Expiration())
	}

	var (
		cmCache  cm.Cache
		fbmCache fbm.Cache
		email    ntm.EmailSender
		sms      ntm.SMSSender
	)
	if cache != nil {
		cmCache, fbmCache = cache, cache
	}
	if b.email != nil {
		email = b.email
	}
	if b.sms != nil {
		sms = b.sms
	}

	var workers []worker.JobWorker
	zc := b.zeebe.GetClient()

	calc, err := cm.NewHandler(cm.HandlerOptions{
		Config:        cm.ConfigFrom(cfg),
		Engine:        engine,
		Store:         store,
		Cache:         cmCache,
		Validator:     validator,
		Observability: obs,
		Logger:        log,
	})
	if err != nil {
		return nil, err
	}
	if w := camunda.Register(zc, cm.TaskType, cfg.Workers[cm.TaskType], calc, log); w != nil {
		workers = append(workers, w)
	}

	rank, err := fbm.NewHandler(fbm.HandlerOptions{
		Config:        fbm.ConfigFrom(cfg),
		Engine:        engine,
		Store:         store,
		Search:        search,
		Cache:         fbmCache,
		Validator:     validator,
		Observability: obs,
		Logger:        log,
	})
	if err != nil {
		return nil, err
	}
	if w := camunda.Register(zc, fbm.TaskType, cfg.Workers[fbm.TaskType], rank, log); w != nil {
		workers = append(workers, w)
	}

	if cfg.Workers[ntm.TaskType].Enabled {
		notify, err := ntm.NewHandler(ntm.HandlerOptions{
			Config:        ntm.ConfigFrom(cfg),
			Contacts:      store,
			Email:         email,
			SMS:           sms,
			Validator:     validator,
			Observability: obs,
			Logger:        log,
		})
		if err != nil {
			return nil, err
		}
		if w := camunda.Register(zc, ntm.TaskType, cfg.Workers[ntm.TaskType], notify, log); w != nil {
			workers = append(workers, w)
		}
	}

	log.Info("workers registered", map[string]interface{}{"count": len(workers)})
	return workers, nil
}

// healthRouter serves liveness, readiness and Prometheus metrics. Readiness
// runs every backend check and reports 503 when any of them fails.
func healthRouter(checks map[string]func(context.Context) error) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
		defer cancel()

		status, code := "ready", http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status, code = "not ready", http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		writeJSON(w, code, map[string]interface{}{
			"status": status,
			"checks": results,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
