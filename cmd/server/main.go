package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"stratus/internal/audit"
	auditkafka "stratus/internal/audit/kafka"
	"stratus/internal/authz"
	"stratus/internal/crypto"
	"stratus/internal/i18n"
	"stratus/internal/identity"
	"stratus/internal/platform/config"
	"stratus/internal/platform/httpserver"
	"stratus/internal/platform/jwt"
	"stratus/internal/platform/logger"
	platformredis "stratus/internal/platform/redis"
	"stratus/internal/provision"
	"stratus/internal/tenancy"
	"stratus/internal/tenancy/cache"
	"stratus/internal/tenancy/handler"
	"stratus/internal/tenancy/metrics"
	"stratus/internal/tenancy/service"
	"stratus/internal/tenancy/store"
	editionstore "stratus/internal/tenancy/store/edition"
	featurestore "stratus/internal/tenancy/store/feature"
	rolestore "stratus/internal/tenancy/store/role"
	tenantstore "stratus/internal/tenancy/store/tenant"
	userstore "stratus/internal/tenancy/store/user"
	"stratus/pkg/platform/tx"
)

// main wires configuration, stores, collaborators, and the HTTP surface.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		tenants  service.TenantStore
		editions service.EditionStore
		features service.FeatureStore
		roles    authz.RoleStore
		users    identity.UserStore
		runner   tx.Runner
		storage  service.StorageProvisioner
	)
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("failed to reach postgres", "error", err)
			os.Exit(1)
		}
		if err := store.Migrate(ctx, db); err != nil {
			log.Error("failed to migrate registry schema", "error", err)
			os.Exit(1)
		}
		tenants = tenantstore.NewPostgres(db)
		editions = editionstore.NewPostgres(db)
		features = featurestore.NewPostgres(db)
		roles = rolestore.NewPostgres(db)
		users = userstore.NewPostgres(db)
		runner = tx.NewSQLRunner(db)
		storage = provision.NewPostgres(db)
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		tenants = tenantstore.NewInMemory()
		editions = editionstore.NewInMemory()
		features = featurestore.NewInMemory()
		roles = rolestore.NewInMemory()
		users = userstore.NewInMemory()
		runner = tx.NopRunner{}
		storage = provision.NewInMemory()
	}

	var cipher service.Cipher
	if cfg.ConnStringKey != "" {
		aes, err := crypto.NewAES(cfg.ConnStringKey)
		if err != nil {
			log.Error("invalid connection string cipher key", "error", err)
			os.Exit(1)
		}
		cipher = aes
	} else {
		log.Warn("no cipher key configured, connection descriptors stored in plaintext")
		cipher = crypto.Passthrough{}
	}

	var publisher audit.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := auditkafka.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("failed to connect audit publisher", "error", err)
			os.Exit(1)
		}
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	} else {
		inbox := make(chan audit.Event, 64)
		worker := audit.NewWorker(audit.NewInMemoryStore(), inbox)
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit worker stopped", "error", err)
			}
		}()
		publisher = audit.NewChannelPublisher(inbox)
	}

	m := metrics.New()
	localizer := i18n.New()

	var featureCache service.FeatureCache
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		featureCache = cache.NewRedis(redisClient.Client, 5*time.Minute)
	}

	registryOpts := []service.RegistryOption{
		service.WithRegistryLogger(log),
		service.WithRegistryAuditPublisher(publisher),
		service.WithRegistryMetrics(m),
	}
	featureOpts := []service.FeaturesOption{
		service.WithFeaturesLogger(log),
		service.WithFeaturesAuditPublisher(publisher),
		service.WithFeaturesMetrics(m),
	}
	if featureCache != nil {
		registryOpts = append(registryOpts, service.WithRegistryFeatureCache(featureCache))
		featureOpts = append(featureOpts, service.WithFeatureCache(featureCache))
	}

	registry := service.NewRegistry(tenants, editions, runner, localizer, registryOpts...)
	catalog := service.NewCatalog(editions, features, tenants, runner, cfg.DefaultEditionName)
	featureSvc := service.NewFeatures(tenants, editions, features, runner, localizer, featureOpts...)

	authzSvc := authz.New(roles)
	identitySvc := identity.New(users, roles)
	provisioner := service.NewProvisioner(registry, catalog, tenants, runner, storage, cipher, authzSvc, identitySvc,
		cfg.DefaultAdminPassword,
		service.WithProvisionerLogger(log),
		service.WithProvisionerAuditPublisher(publisher),
		service.WithProvisionerMetrics(m),
	)

	h := tenancy.NewHandler(provisioner, registry, catalog, featureSvc, log)
	router := handler.NewRouter(h, jwt.NewValidator(cfg.JWTSigningKey), log)
	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("starting stratus", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("stratus stopped")
}
