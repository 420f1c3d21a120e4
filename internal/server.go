package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/2beens/apexhq/internal/appstate"
	"github.com/2beens/apexhq/internal/coach"
	"github.com/2beens/apexhq/internal/config"
	"github.com/2beens/apexhq/internal/kv"
	"github.com/2beens/apexhq/internal/middleware"
	"github.com/2beens/apexhq/internal/profiles"
	"github.com/2beens/apexhq/internal/program"
	"github.com/2beens/apexhq/internal/session"
	"github.com/2beens/apexhq/internal/telemetry/metrics"
	"github.com/2beens/apexhq/internal/telemetry/tracing"
	"github.com/2beens/apexhq/pkg"
)

// seconds a cached document stays in the local cache
const localCacheExpireSec = 300

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server

	config *config.Config

	redisClient    *redis.Client
	kvStore        kv.Store
	profileStore   *profiles.Store
	aggregator     *appstate.Aggregator
	sessionManager *session.Manager
	gateway        *coach.Gateway
	desk           *coach.Desk
	chat           *coach.Chat
	programService *program.Service

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	GeminiAPIKey            string
	RedisPassword           string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config
	if cfg == nil {
		return nil, errors.New("config not set")
	}

	promRegistry := metrics.SetupPrometheus("apexhq-backend")
	metricsManager := metrics.NewManager("backend", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	var rdb *redis.Client
	if cfg.StorageBackend == config.StorageRedis {
		rdb = redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
			Password: params.RedisPassword,
			DB:       0, // use default DB
		})
		rdbStatus := rdb.Ping(ctx)
		if err := rdbStatus.Err(); err != nil {
			// the store degrades to defaults on failures, keep going
			log.Errorf("--> failed to ping redis: %s", err)
		} else {
			log.Debugf("redis ping: %s", rdbStatus.Val())
		}
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "apexhq-backend", rdb)
	if err != nil {
		return nil, fmt.Errorf("tracing setup: %w", err)
	}

	var kvStore kv.Store
	if rdb != nil {
		kvStore = kv.NewRedisStore(rdb)
	} else {
		log.Warnln("using in-memory storage, nothing survives a restart")
		kvStore = kv.NewMemoryStore()
	}
	if cfg.LocalCacheSize > 0 {
		cachedStore := kv.NewCachedStore(kvStore, cfg.LocalCacheSize, localCacheExpireSec)
		if err := metrics.RegisterCacheHitRate(promRegistry, "backend", "main", cachedStore.HitRate); err != nil {
			log.Errorf("register cache hit rate metric: %s", err)
		}
		kvStore = cachedStore
	}

	keys := kv.NewKeys(cfg.KeyPrefix)
	profileStore := profiles.NewStore(kvStore, keys, metricsManager)
	if cfg.SeedDemoData {
		if seeded := profileStore.SeedIfEmpty(ctx); seeded {
			log.Infoln("demo athletes seeded")
		}
	}

	aggregator := appstate.NewAggregator(profileStore)
	sessionManager := session.NewManager(kvStore, keys, aggregator)
	sessionManager.ExistsFunc = profileStore.Exists
	state := sessionManager.Restore(ctx)
	log.Debugf("session restored: [%s] athlete [%s]", state, sessionManager.AthleteID())

	tracedHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   30 * time.Second,
	}
	gateway := coach.NewGateway(
		tracedHttpClient,
		cfg.GeminiBaseURL,
		cfg.GeminiModel,
		params.GeminiAPIKey,
		metricsManager,
	)
	if !gateway.Configured() {
		log.Warnln("gemini api key not set, coach will answer with the fallback message")
	}
	desk := coach.NewDesk()

	return &Server{
		config:         cfg,
		redisClient:    rdb,
		kvStore:        kvStore,
		profileStore:   profileStore,
		aggregator:     aggregator,
		sessionManager: sessionManager,
		gateway:        gateway,
		desk:           desk,
		chat:           coach.NewChat(),
		programService: program.NewService(gateway, aggregator, desk),
		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteTextResponseOK(w, "I'm OK, thanks ;)")
	}).Methods("GET", "POST", "OPTIONS").Name("root")

	profilesHandler := profiles.NewHandler(s.profileStore)
	r.HandleFunc("/athletes", profilesHandler.HandleList).Methods("GET", "OPTIONS").Name("list-athletes")

	sessionHandler := session.NewHandler(s.sessionManager, s.aggregator)
	sessionHandler.SetupRoutes(r)

	appstateHandler := appstate.NewHandler(s.aggregator, appstate.NewCommands(s.aggregator))
	appstateHandler.SetupRoutes(r)

	// model calls cost money, limit them when a shared limiter is available
	var coachMiddlewares, programMiddlewares []mux.MiddlewareFunc
	if s.redisClient != nil {
		reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
		coachMiddlewares = append(coachMiddlewares, middleware.RateLimit(
			reqRateLimiter, "coach", s.config.CoachRateLimitPerMinute, s.metricsManager,
		))
		programMiddlewares = append(programMiddlewares, middleware.RateLimit(
			reqRateLimiter, "program", s.config.CoachRateLimitPerMinute, s.metricsManager,
		))
	} else {
		log.Debugln("no redis client, coach rate limiting disabled")
	}

	coachHandler := coach.NewHandler(s.gateway, s.aggregator, s.desk, s.chat)
	coachHandler.SetupRoutes(r, coachMiddlewares...)

	programHandler := program.NewHandler(s.programService)
	programHandler.SetupRoutes(r, programMiddlewares...)

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "DELETE", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.sessionManager)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r, nil
}

func (s *Server) Serve(host string, port int) {
	router, err := s.routerSetup()
	if err != nil {
		log.Fatalf("failed to setup router: %s", err)
	}

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))

	s.httpServer = &http.Server{
		Handler: router,
		Addr:    ipAndPort,
		// coach calls may take a while, keep this above the model client timeout
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	// stop taking requests first, in-flight writes still need redis
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	}
}
